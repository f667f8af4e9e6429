package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/banterhq/banter/server/mediator"
)

// ThreadIDHeader carries the thread identifier of a streamed chat response.
const ThreadIDHeader = "X-Thread-ID"

type chatRequest struct {
	Message  string `json:"message"`
	UserID   string `json:"userId"`
	Image    string `json:"image"`
	PDFData  string `json:"pdfData"`
	ThreadID string `json:"threadId"`
	// Stream selects incremental delivery. Defaults to true; the JSON
	// variant returns the full reply in one object.
	Stream *bool `json:"stream"`
}

type chatResponse struct {
	Reply    string `json:"reply"`
	ThreadID string `json:"threadId,omitempty"`
}

// Chat handles POST /api/chat. The streaming variant relays generated text
// fragments as a chunked text/plain body with the thread identifier in the
// X-Thread-ID header; the non-streaming variant returns a single JSON object.
func (s *APIV1Service) Chat(c echo.Context) error {
	if s.Mediator == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "generation service is not configured"})
	}

	req := &chatRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	mreq := &mediator.ChatRequest{
		Message:  req.Message,
		UserID:   req.UserID,
		Image:    req.Image,
		PDFData:  req.PDFData,
		ThreadID: req.ThreadID,
	}

	if req.Stream != nil && !*req.Stream {
		return s.chatJSON(c, mreq)
	}
	return s.chatStream(c, mreq)
}

func (s *APIV1Service) chatJSON(c echo.Context, mreq *mediator.ChatRequest) error {
	result, err := s.Mediator.Chat(c.Request().Context(), mreq, nil)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, chatResponse{Reply: result.Reply, ThreadID: result.ThreadID})
}

func (s *APIV1Service) chatStream(c echo.Context, mreq *mediator.ChatRequest) error {
	writer := newStreamWriter(c)

	_, err := s.Mediator.Chat(c.Request().Context(), mreq, writer)
	switch {
	case errors.Is(err, mediator.ErrRelayInterrupted):
		// Caller went away mid-stream; nothing left to send.
		return nil
	case err != nil:
		if writer.started {
			// Fragments were already relayed; the connection is simply
			// closed without a trailing error payload.
			return nil
		}
		return errorJSON(c, err)
	}

	// Zero-fragment replies still need the headers committed.
	if !writer.started {
		writer.commitHeaders()
	}
	return nil
}

// streamWriter relays fragments onto the HTTP response, committing headers
// lazily so pre-stream failures can still produce a JSON error status.
type streamWriter struct {
	c        echo.Context
	threadID string
	started  bool
}

func newStreamWriter(c echo.Context) *streamWriter {
	return &streamWriter{c: c}
}

func (w *streamWriter) Start(threadID string) error {
	w.threadID = threadID
	return nil
}

func (w *streamWriter) commitHeaders() {
	res := w.c.Response()
	res.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
	if w.threadID != "" {
		res.Header().Set(ThreadIDHeader, w.threadID)
	}
	res.WriteHeader(http.StatusOK)
	w.started = true
}

func (w *streamWriter) WriteChunk(chunk string) error {
	if !w.started {
		w.commitHeaders()
	}
	if _, err := w.c.Response().Write([]byte(chunk)); err != nil {
		return errors.Wrap(err, "failed to write chunk")
	}
	w.c.Response().Flush()
	return nil
}
