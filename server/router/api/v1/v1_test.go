package v1

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/banterhq/banter/internal/profile"
	"github.com/banterhq/banter/plugin/ai"
	"github.com/banterhq/banter/plugin/payment"
	"github.com/banterhq/banter/plugin/textextract"
	"github.com/banterhq/banter/server/mediator"
	"github.com/banterhq/banter/server/quota"
	"github.com/banterhq/banter/store"
	"github.com/banterhq/banter/store/db/sqlite"
)

type fakeLLM struct {
	chunks []string
}

func (f *fakeLLM) Generate(_ context.Context, _ *ai.GenerateRequest) (string, error) {
	return strings.Join(f.chunks, ""), nil
}

func (f *fakeLLM) GenerateStream(_ context.Context, _ *ai.GenerateRequest) (<-chan string, <-chan error) {
	contentChan := make(chan string)
	errChan := make(chan error, 1)
	go func() {
		defer close(contentChan)
		defer close(errChan)
		for _, chunk := range f.chunks {
			contentChan <- chunk
		}
	}()
	return contentChan, errChan
}

type testEnv struct {
	echo  *echo.Echo
	store *store.Store
}

func newTestEnv(t *testing.T, llm ai.LLMService, pay *payment.Client) *testEnv {
	t.Helper()
	p := &profile.Profile{
		Mode:          "dev",
		Driver:        "sqlite",
		DSN:           t.TempDir() + "/banter_test.db",
		OrderAmount:   49900,
		OrderCurrency: "INR",
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)

	st := store.New(driver, p)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = st.Close()
	})

	logger := slog.New(slog.DiscardHandler)
	var med *mediator.Mediator
	if llm != nil {
		extractor := textextract.NewClient(&textextract.Config{TikaServerURL: "http://invalid", Timeout: time.Second})
		med = mediator.New(st, quota.NewLedger(st), llm, extractor, logger, 4)
	}

	e := echo.New()
	svc := NewAPIV1Service(p, st, med, pay, logger)
	svc.RegisterRoutes(e)
	return &testEnv{echo: e, store: st}
}

func (env *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func TestChatStreaming(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{chunks: []string{"Hello", " world"}}, nil)

	rec := env.do(http.MethodPost, "/api/chat", `{"message":"hi","userId":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/plain")
	require.Equal(t, "Hello world", rec.Body.String())

	threadID := rec.Header().Get(ThreadIDHeader)
	require.NotEmpty(t, threadID)

	messages, err := env.store.ListMessages(context.Background(), "alice", threadID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "Hello world", messages[1].Content)
}

func TestChatStreamingAnonymousOmitsThreadHeader(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{chunks: []string{"ok"}}, nil)

	rec := env.do(http.MethodPost, "/api/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
	require.Empty(t, rec.Header().Get(ThreadIDHeader))
}

func TestChatNonStreaming(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{chunks: []string{"full", " reply"}}, nil)

	rec := env.do(http.MethodPost, "/api/chat", `{"message":"hi","userId":"alice","stream":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "full reply", resp.Reply)
	require.NotEmpty(t, resp.ThreadID)
}

func TestChatEmptyRequest(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{}, nil)

	rec := env.do(http.MethodPost, "/api/chat", `{"message":"  ","userId":"alice"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "error")
}

func TestChatQuotaExceeded(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{chunks: []string{"never"}}, nil)
	_, err := env.store.CreateUser(context.Background(), &store.User{ID: "alice", MessageCount: quota.FreeMessageLimit})
	require.NoError(t, err)

	rec := env.do(http.MethodPost, "/api/chat", `{"message":"hi","userId":"alice"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestChatLimiterKey(t *testing.T) {
	e := echo.New()

	// Plain JSON requests are bucketed by IP; the userId in the body is
	// invisible to middleware.
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi","userId":"alice"}`))
	req.RemoteAddr = "203.0.113.7:4321"
	c := e.NewContext(req, httptest.NewRecorder())
	require.Equal(t, "203.0.113.7", chatLimiterKey(c))

	// The X-User-ID header opts into a per-user bucket.
	req = httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("X-User-ID", "alice")
	c = e.NewContext(req, httptest.NewRecorder())
	require.Equal(t, "alice", chatLimiterKey(c))
}

func TestChatGenerationNotConfigured(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(http.MethodPost, "/api/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListThreadsAndMessages(t *testing.T) {
	env := newTestEnv(t, &fakeLLM{chunks: []string{"reply"}}, nil)

	rec := env.do(http.MethodPost, "/api/chat", `{"message":"first question","userId":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	threadID := rec.Header().Get(ThreadIDHeader)

	rec = env.do(http.MethodGet, "/api/threads/alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var threads []threadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &threads))
	require.Len(t, threads, 1)
	require.Equal(t, threadID, threads[0].ID)
	require.Equal(t, "first question", threads[0].Title)

	rec = env.do(http.MethodGet, "/api/thread/alice/"+threadID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var messages []messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 2)
	require.Equal(t, "user", messages[0].Role)
	require.Equal(t, "assistant", messages[1].Role)

	// Foreign threads read as empty, not as an error.
	rec = env.do(http.MethodGet, "/api/thread/bob/"+threadID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]\n", rec.Body.String())
}

func TestCreateOrder(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "order_XYZ", "amount": 49900, "currency": "INR", "status": "created",
		})
	}))
	defer gateway.Close()

	pay := payment.NewClient(&payment.Config{KeyID: "key", KeySecret: "secret", BaseURL: gateway.URL})
	env := newTestEnv(t, nil, pay)

	rec := env.do(http.MethodPost, "/api/create-order", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var order payment.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	require.Equal(t, "order_XYZ", order.ID)
	require.Equal(t, int64(49900), order.Amount)
}

func TestCreateOrderNotConfigured(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(http.MethodPost, "/api/create-order", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func paymentSignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPaymentUpgradesUser(t *testing.T) {
	const secret = "rzp_secret"
	pay := payment.NewClient(&payment.Config{KeyID: "key", KeySecret: secret})
	env := newTestEnv(t, nil, pay)

	_, err := env.store.CreateUser(context.Background(), &store.User{ID: "alice", MessageCount: 3})
	require.NoError(t, err)

	sig := paymentSignature(secret, "order_1", "pay_1")
	body := `{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"` + sig + `","userId":"alice"}`
	rec := env.do(http.MethodPost, "/api/verify-payment", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp verifyPaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	userID := "alice"
	user, err := env.store.GetUser(context.Background(), &store.FindUser{ID: &userID})
	require.NoError(t, err)
	require.Equal(t, store.UserPlanPro, user.Plan)
	require.NotZero(t, user.SubscriptionTs)
	require.Equal(t, 3, user.MessageCount, "the upgrade must not touch the message counter")
}

func TestVerifyPaymentInvalidSignature(t *testing.T) {
	pay := payment.NewClient(&payment.Config{KeyID: "key", KeySecret: "rzp_secret"})
	env := newTestEnv(t, nil, pay)

	_, err := env.store.CreateUser(context.Background(), &store.User{ID: "alice"})
	require.NoError(t, err)

	body := `{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"bogus","userId":"alice"}`
	rec := env.do(http.MethodPost, "/api/verify-payment", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp verifyPaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, "Invalid Signature", resp.Error)

	userID := "alice"
	user, err := env.store.GetUser(context.Background(), &store.FindUser{ID: &userID})
	require.NoError(t, err)
	require.Equal(t, store.UserPlanFree, user.Plan, "a mismatch must not change the plan")
}

func TestVerifyPaymentMissingUserID(t *testing.T) {
	pay := payment.NewClient(&payment.Config{KeyID: "key", KeySecret: "rzp_secret"})
	env := newTestEnv(t, nil, pay)

	rec := env.do(http.MethodPost, "/api/verify-payment", `{"razorpay_order_id":"o","razorpay_payment_id":"p","razorpay_signature":"s"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
