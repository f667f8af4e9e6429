// Package v1 exposes the HTTP surface of the chat service.
package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/banterhq/banter/internal/profile"
	"github.com/banterhq/banter/plugin/payment"
	apperrors "github.com/banterhq/banter/internal/errors"
	"github.com/banterhq/banter/server/mediator"
	"github.com/banterhq/banter/server/middleware"
	"github.com/banterhq/banter/store"
)

// APIV1Service wires the chat pipeline and payment gateway to echo routes.
type APIV1Service struct {
	Profile  *profile.Profile
	Store    *store.Store
	Mediator *mediator.Mediator
	Payment  *payment.Client

	logger      *slog.Logger
	chatLimiter *middleware.RateLimiter
}

// NewAPIV1Service creates the API service. Payment may be nil when the
// gateway is not configured.
func NewAPIV1Service(profile *profile.Profile, st *store.Store, med *mediator.Mediator, pay *payment.Client, logger *slog.Logger) *APIV1Service {
	return &APIV1Service{
		Profile:  profile,
		Store:    st,
		Mediator: med,
		Payment:  pay,
		logger:   logger,
		// 10 chat requests per second per caller, burst of 20.
		chatLimiter: middleware.NewRateLimiter(10, 20),
	}
}

// RegisterRoutes registers all API routes on the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")

	api.POST("/chat", s.Chat, s.chatLimiter.Middleware(chatLimiterKey))
	api.GET("/threads/:userId", s.ListThreads)
	api.GET("/thread/:userId/:threadId", s.ListMessages)
	api.POST("/create-order", s.CreateOrder)
	api.POST("/verify-payment", s.VerifyPayment)
}

// chatLimiterKey buckets chat requests by the caller's IP. The userId lives
// in the JSON body, which middleware cannot read without consuming it, so
// browser clients are IP-bucketed. Callers that also send an X-User-ID
// header get a per-user bucket instead.
func chatLimiterKey(c echo.Context) string {
	if userID := c.Request().Header.Get("X-User-ID"); userID != "" {
		return userID
	}
	return c.RealIP()
}

// errorJSON converts a pipeline error into the boundary HTTP response.
func errorJSON(c echo.Context, err error) error {
	if appErr := apperrors.AsAppError(err); appErr != nil {
		return c.JSON(appErr.HTTPStatus(), map[string]string{"error": appErr.Message})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
