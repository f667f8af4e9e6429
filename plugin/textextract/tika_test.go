package textextract

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/banterhq/banter/internal/errors"
)

func encode(payload string) string {
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

func TestExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/tika", r.URL.Path)
		require.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		require.Equal(t, "text/plain", r.Header.Get("Accept"))
		_, _ = w.Write([]byte("  Extracted document text.\n"))
	}))
	defer server.Close()

	client := NewClient(&Config{TikaServerURL: server.URL, Timeout: 5 * time.Second})

	text, err := client.Extract(context.Background(), encode("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.Equal(t, "Extracted document text.", text, "surrounding whitespace is trimmed")
}

func TestExtractDataURIPrefix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(&Config{TikaServerURL: server.URL, Timeout: 5 * time.Second})

	_, err := client.Extract(context.Background(), "data:application/pdf;base64,"+encode("%PDF-1.4 fake"))
	require.NoError(t, err)
}

func TestExtractServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unparseable document", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(&Config{TikaServerURL: server.URL, Timeout: 5 * time.Second})

	_, err := client.Extract(context.Background(), encode("not a pdf"))
	require.Equal(t, apperrors.ErrCodeExtractionError, apperrors.CodeOf(err))
}

func TestExtractMalformedPayload(t *testing.T) {
	client := NewClient(nil)

	tests := []struct {
		name    string
		payload string
	}{
		{"invalid base64", "!!! definitely not base64 !!!"},
		{"empty payload", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Extract(context.Background(), tt.payload)
			require.Equal(t, apperrors.ErrCodeExtractionError, apperrors.CodeOf(err))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("chapter one", "what happens?")
	require.Equal(t, "Document Content:\nchapter one\n\nUser Question: what happens?", prompt)
}
