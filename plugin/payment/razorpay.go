// Package payment integrates the Razorpay payment gateway: order creation
// through its REST API and local HMAC verification of payment signatures.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

// Config holds the payment gateway configuration.
type Config struct {
	KeyID     string
	KeySecret string
	// BaseURL overrides the Razorpay API endpoint (tests).
	BaseURL string
	Timeout time.Duration
}

// Client talks to the Razorpay API.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a new payment gateway client.
func NewClient(config *Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Order is the payment-order object returned by the gateway, forwarded to
// the client unmodified apart from field selection.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder creates a payment order for the given amount in the smallest
// currency unit. The receipt is derived from the current time, matching the
// gateway's uniqueness expectations.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency string) (*Order, error) {
	payload := map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  fmt.Sprintf("receipt_%d", time.Now().UnixMilli()),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal order payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create order request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.config.KeyID, c.config.KeySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "order request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	order := &Order{}
	if err := json.NewDecoder(resp.Body).Decode(order); err != nil {
		return nil, errors.Wrap(err, "failed to decode order response")
	}
	return order, nil
}

// VerifySignature checks a payment signature: HMAC-SHA256 over
// "orderID|paymentID" keyed with the shared secret, hex encoded.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(c.config.KeySecret, orderID, paymentID, signature)
}

// VerifySignature is the keyed comparison used by Client.VerifySignature,
// exposed for verification against a bare secret.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
