package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type threadResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"createdAt"`
}

type messageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Image     string `json:"image,omitempty"`
	HasPDF    bool   `json:"hasPdf"`
	Timestamp int64  `json:"timestamp"`
}

// ListThreads handles GET /api/threads/:userId, newest thread first.
func (s *APIV1Service) ListThreads(c echo.Context) error {
	userID := c.Param("userId")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "userId is required"})
	}

	threads, err := s.Store.ListThreads(c.Request().Context(), userID)
	if err != nil {
		s.logger.Error("failed to list threads", "user_id", userID, "error", err)
		return errorJSON(c, err)
	}

	resp := make([]threadResponse, 0, len(threads))
	for _, thread := range threads {
		resp = append(resp, threadResponse{
			ID:        thread.UID,
			Title:     thread.Title,
			CreatedAt: thread.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// ListMessages handles GET /api/thread/:userId/:threadId, oldest message
// first. Unknown or foreign threads yield an empty array.
func (s *APIV1Service) ListMessages(c echo.Context) error {
	userID := c.Param("userId")
	threadID := c.Param("threadId")
	if userID == "" || threadID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "userId and threadId are required"})
	}

	messages, err := s.Store.ListMessages(c.Request().Context(), userID, threadID)
	if err != nil {
		s.logger.Error("failed to list messages", "user_id", userID, "thread_id", threadID, "error", err)
		return errorJSON(c, err)
	}

	resp := make([]messageResponse, 0, len(messages))
	for _, message := range messages {
		resp = append(resp, messageResponse{
			ID:        message.UID,
			Role:      string(message.Role),
			Content:   message.Content,
			Image:     message.Image,
			HasPDF:    message.HasPDF,
			Timestamp: message.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, resp)
}
