package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestAllowPerKeyBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	require.True(t, rl.Allow("alice"))
	require.True(t, rl.Allow("alice"))
	require.False(t, rl.Allow("alice"), "burst exhausted")

	// A different key has its own bucket.
	require.True(t, rl.Allow("bob"))
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	e := echo.New()
	handler := rl.Middleware(func(c echo.Context) string {
		return c.Request().Header.Get("X-User-ID")
	})(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	call := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-User-ID", userID)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		err := handler(c)
		if err != nil {
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			return httpErr.Code
		}
		return rec.Code
	}

	require.Equal(t, http.StatusOK, call("alice"))
	require.Equal(t, http.StatusTooManyRequests, call("alice"))
	require.Equal(t, http.StatusOK, call("bob"))
}
