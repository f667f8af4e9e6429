// Package textextract converts uploaded document payloads into plain text
// usable as model input, using an Apache Tika server.
package textextract

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	apperrors "github.com/banterhq/banter/internal/errors"
)

// Config holds the text extraction configuration.
type Config struct {
	// TikaServerURL is the URL of the Tika server (e.g. http://localhost:9998)
	TikaServerURL string
	// Timeout is the HTTP timeout for Tika server requests
	Timeout time.Duration
}

// DefaultConfig returns the default text extraction configuration.
func DefaultConfig() *Config {
	return &Config{
		TikaServerURL: "http://localhost:9998",
		Timeout:       30 * time.Second,
	}
}

// Client provides text extraction functionality.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a new text extraction client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Extract decodes a base64 document payload and extracts its plain text.
// A data-URI prefix ("data:application/pdf;base64,...") is tolerated.
// Malformed encoding or an unparseable document yields EXTRACTION_ERROR.
// No state is retained between calls.
func (c *Client) Extract(ctx context.Context, encodedPayload string) (string, error) {
	data, err := decodePayload(encodedPayload)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeExtractionError, "malformed document payload", err)
	}

	text, err := c.extractFromServer(ctx, data)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeExtractionError, "document extraction failed", err)
	}
	return text, nil
}

// BuildPrompt concatenates extracted document text with the user's question
// to form the effective model prompt.
func BuildPrompt(documentText, question string) string {
	return fmt.Sprintf("Document Content:\n%s\n\nUser Question: %s", documentText, question)
}

func decodePayload(encoded string) ([]byte, error) {
	if idx := strings.Index(encoded, ";base64,"); idx >= 0 {
		encoded = encoded[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base64 encoding")
	}
	if len(data) == 0 {
		return nil, errors.New("empty document payload")
	}
	return data, nil
}

func (c *Client) extractFromServer(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.config.TikaServerURL+"/tika",
		bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "tika server request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", errors.Errorf("tika server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read tika response")
	}
	return strings.TrimSpace(string(text)), nil
}
