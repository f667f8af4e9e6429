// Package mediator drives a single chat request end-to-end: validation,
// quota check, optional document extraction, generation, incremental relay
// to the caller, and persistence of the final exchange.
package mediator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/banterhq/banter/plugin/ai"
	"github.com/banterhq/banter/plugin/textextract"
	apperrors "github.com/banterhq/banter/internal/errors"
	"github.com/banterhq/banter/internal/observability"
	"github.com/banterhq/banter/server/quota"
	"github.com/banterhq/banter/store"
)

// Default prompts substituted when a media request carries no question text.
const (
	defaultPDFPrompt   = "Analyze this PDF"
	defaultImagePrompt = "Describe this image"
)

// ChatRequest is one inbound chat call.
type ChatRequest struct {
	Message  string
	UserID   string
	Image    string // inline-encoded image payload, presence implies vision
	PDFData  string // inline-encoded document payload
	ThreadID string // thread UID; empty requests a new thread
}

// ChatResult is the outcome of a completed (or partially completed) chat.
type ChatResult struct {
	ThreadID string
	Reply    string
}

// ChunkWriter receives each generated fragment as it arrives. Forwarding is
// verbatim and immediate; no reordering, no batching.
type ChunkWriter interface {
	// Start is called once, after thread resolution and before generation
	// begins, so the transport can announce the thread identifier.
	Start(threadID string) error
	WriteChunk(chunk string) error
}

// ErrRelayInterrupted reports that the caller went away while fragments were
// being relayed. The partial reply has been persisted.
var ErrRelayInterrupted = errors.New("relay interrupted by caller")

// Mediator orchestrates the chat pipeline. All collaborators are injected;
// the mediator holds no per-request state.
type Mediator struct {
	store     *store.Store
	ledger    *quota.Ledger
	llm       ai.LLMService
	extractor *textextract.Client
	logger    *slog.Logger

	// generationSem caps concurrent model invocations.
	generationSem *semaphore.Weighted
}

// New creates a mediator. maxInFlight caps concurrent generations.
func New(st *store.Store, ledger *quota.Ledger, llm ai.LLMService, extractor *textextract.Client, logger *slog.Logger, maxInFlight int64) *Mediator {
	if maxInFlight <= 0 {
		maxInFlight = 8
	}
	return &Mediator{
		store:         st,
		ledger:        ledger,
		llm:           llm,
		extractor:     extractor,
		logger:        logger,
		generationSem: semaphore.NewWeighted(maxInFlight),
	}
}

// Chat runs the pipeline for one request. When w is non-nil each generated
// fragment is forwarded through it as it arrives; when w is nil the single
// shot mode is used and the full reply is only returned in the result.
//
// On generation failure the user turn is still persisted, with an assistant
// turn carrying the error text, and the generation error is returned. When
// the caller disconnects mid-relay the partial reply is persisted and
// ErrRelayInterrupted is returned alongside the result.
func (m *Mediator) Chat(ctx context.Context, req *ChatRequest, w ChunkWriter) (*ChatResult, error) {
	rc := observability.NewRequestContext(m.logger, req.UserID)

	// Received
	if strings.TrimSpace(req.Message) == "" && req.Image == "" && req.PDFData == "" {
		return nil, apperrors.New(apperrors.ErrCodeEmptyRequest, "message, image or document required")
	}

	// QuotaChecked. Anonymous callers skip the ledger; enforcement for them
	// is client-side only.
	capability := quota.Capability{Media: req.Image != "" || req.PDFData != ""}
	if err := m.ledger.CheckAndConsume(ctx, req.UserID, capability); err != nil {
		rc.Warn("request rejected by quota ledger",
			slog.String(observability.LogFieldErrorCode, string(apperrors.CodeOf(err))))
		return nil, err
	}

	message := req.Message
	if strings.TrimSpace(message) == "" {
		if req.PDFData != "" {
			message = defaultPDFPrompt
		} else {
			message = defaultImagePrompt
		}
	}

	// ExtractedText (conditional)
	prompt := message
	if req.PDFData != "" {
		text, err := m.extractor.Extract(ctx, req.PDFData)
		if err != nil {
			rc.Error("document extraction failed", err)
			return nil, err
		}
		prompt = textextract.BuildPrompt(text, message)
	}

	genReq := &ai.GenerateRequest{Prompt: prompt}
	if req.Image != "" {
		image, mimeType, err := decodeImage(req.Image)
		if err != nil {
			return nil, err
		}
		genReq.Image = image
		genReq.ImageMIMEType = mimeType
	}

	// Generating. The thread is created before generation starts so an
	// interrupted generation still yields a visible, empty thread.
	var thread *store.Thread
	if req.UserID != "" {
		var err error
		thread, err = m.resolveThread(ctx, req)
		if err != nil {
			rc.Error("thread resolution failed", err)
			return nil, err
		}
		rc.Info("chat started",
			slog.String(observability.LogFieldThreadID, thread.UID),
			slog.Int(observability.LogFieldMessageLen, len(message)))
	} else {
		rc.Info("anonymous chat started",
			slog.Int(observability.LogFieldMessageLen, len(message)))
	}

	if err := m.generationSem.Acquire(ctx, 1); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeGenerationFailed, "generation canceled", err)
	}
	defer m.generationSem.Release(1)

	result := &ChatResult{}
	if thread != nil {
		result.ThreadID = thread.UID
	}

	var reply string
	var genErr, relayErr error
	if w != nil {
		if err := w.Start(result.ThreadID); err != nil {
			return result, ErrRelayInterrupted
		}
		reply, genErr, relayErr = m.relay(ctx, genReq, w)
	} else {
		reply, genErr = m.llm.Generate(ctx, genReq)
	}
	result.Reply = reply

	// Persisted. The user turn is committed even when generation failed; a
	// failed assistant turn carries the error text. Appends are sequential
	// and non-atomic.
	if thread != nil {
		assistantContent := reply
		if genErr != nil {
			assistantContent = genErr.Error()
		}
		if err := m.persistExchange(ctx, thread.ID, message, req, assistantContent); err != nil {
			rc.Error("failed to persist exchange", err)
			if genErr == nil && relayErr == nil {
				return result, err
			}
		}
	}

	if genErr != nil {
		rc.Error("generation failed", genErr,
			slog.Int64(observability.LogFieldDuration, rc.DurationMs()))
		return result, genErr
	}
	if relayErr != nil {
		rc.Warn("relay interrupted, partial reply persisted",
			slog.Int64(observability.LogFieldDuration, rc.DurationMs()))
		return result, ErrRelayInterrupted
	}

	rc.Info("chat completed",
		slog.Int64(observability.LogFieldDuration, rc.DurationMs()),
		slog.Int("reply_length", len(reply)))
	return result, nil
}

// relay consumes the generation stream, forwarding each fragment verbatim
// and accumulating the full reply. The concatenation of forwarded fragments
// always equals the returned reply.
func (m *Mediator) relay(ctx context.Context, genReq *ai.GenerateRequest, w ChunkWriter) (reply string, genErr, relayErr error) {
	contentChan, errChan := m.llm.GenerateStream(ctx, genReq)

	var sb strings.Builder
	for chunk := range contentChan {
		if relayErr == nil {
			if err := w.WriteChunk(chunk); err != nil {
				// Caller is gone. Keep draining so the generator can
				// finish and report through errChan.
				relayErr = err
				continue
			}
			sb.WriteString(chunk)
		}
	}
	genErr = <-errChan
	return sb.String(), genErr, relayErr
}

// resolveThread finds the requested thread or creates a new one. An unknown
// thread UID falls back to creation so the exchange is never dropped.
func (m *Mediator) resolveThread(ctx context.Context, req *ChatRequest) (*store.Thread, error) {
	if req.ThreadID != "" {
		thread, err := m.store.GetThread(ctx, req.UserID, req.ThreadID)
		if err != nil {
			return nil, err
		}
		if thread != nil {
			return thread, nil
		}
	}
	seed := req.Message
	if strings.TrimSpace(seed) == "" {
		if req.PDFData != "" {
			seed = defaultPDFPrompt
		} else {
			seed = defaultImagePrompt
		}
	}
	return m.store.CreateThread(ctx, req.UserID, seed)
}

func (m *Mediator) persistExchange(ctx context.Context, threadID int32, message string, req *ChatRequest, assistantContent string) error {
	if _, err := m.store.AppendMessage(ctx, &store.Message{
		ThreadID: threadID,
		Role:     store.MessageRoleUser,
		Content:  message,
		Image:    req.Image,
		HasPDF:   req.PDFData != "",
	}); err != nil {
		return err
	}
	if _, err := m.store.AppendMessage(ctx, &store.Message{
		ThreadID: threadID,
		Role:     store.MessageRoleAssistant,
		Content:  assistantContent,
	}); err != nil {
		return err
	}
	return nil
}
