// Package server assembles the HTTP server: echo instance, middleware, and
// the chat pipeline's collaborators.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/banterhq/banter/internal/profile"
	"github.com/banterhq/banter/plugin/ai"
	"github.com/banterhq/banter/plugin/payment"
	"github.com/banterhq/banter/plugin/textextract"
	"github.com/banterhq/banter/server/mediator"
	"github.com/banterhq/banter/server/quota"
	apiv1 "github.com/banterhq/banter/server/router/api/v1"
	"github.com/banterhq/banter/store"
)

// Server is the main server.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	logger     *slog.Logger
}

// NewServer creates the server with all collaborators wired. Generation and
// payment are optional: when unconfigured the corresponding routes answer
// 503 instead of failing at startup.
func NewServer(ctx context.Context, profile *profile.Profile, st *store.Store, logger *slog.Logger) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	// The chat body carries inline-encoded media payloads.
	e.Use(echomw.BodyLimit("50M"))
	e.Use(requestLogger(logger))

	s := &Server{
		Profile:    profile,
		Store:      st,
		echoServer: e,
		logger:     logger,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	var med *mediator.Mediator
	if profile.IsGenerationEnabled() {
		llm, err := ai.NewLLMService(ai.NewConfigFromProfile(profile))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create generation service")
		}
		extractor := textextract.NewClient(&textextract.Config{
			TikaServerURL: profile.TikaServerURL,
			Timeout:       profile.TikaTimeout,
		})
		ledger := quota.NewLedger(st)
		med = mediator.New(st, ledger, llm, extractor, logger, int64(profile.LLMMaxInFlight))
	} else {
		logger.Warn("no generation backend configured, chat endpoint disabled")
	}

	var pay *payment.Client
	if profile.IsPaymentEnabled() {
		pay = payment.NewClient(&payment.Config{
			KeyID:     profile.RazorpayKeyID,
			KeySecret: profile.RazorpayKeySecret,
		})
	} else {
		logger.Warn("payment gateway not configured, payment endpoints disabled")
	}

	apiService := apiv1.NewAPIV1Service(profile, st, med, pay, logger)
	apiService.RegisterRoutes(e)

	return s, nil
}

// Start starts the server and blocks until the listener fails or is shut down.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	s.logger.Info("server listening", "address", address, "mode", s.Profile.Mode, "version", s.Profile.Version)
	return s.echoServer.Start(address)
}

// Shutdown gracefully stops the server and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shut down server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		s.logger.Error("failed to close store", "error", err)
	}
	s.logger.Info("server shut down")
}

// Echo exposes the echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echoServer
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	})
}
