package chat

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"chatbridge-mcp-server/internal/browser"
	"chatbridge-mcp-server/internal/config"
	"chatbridge-mcp-server/internal/transcript"
)

// contextWindow is advertised metadata only; the web application enforces its
// own limits and exposes no way to read them.
const contextWindow = 128_000

// Handler is the public contract consumed by the rest of the system: produce
// a response for a conversation or a single prompt, report model metadata,
// estimate tokens, dispose.
//
// Caller-level invariant: one submission at a time per Handler. Two
// concurrent submissions against the same input surface would corrupt each
// other's injected text; this type does not serialize them.
type Handler struct {
	cfg      config.ChatConfig
	sessions *browser.SessionManager
	input    *InputDriver
	observer *ResponseObserver
	recorder *transcript.Recorder
}

func NewHandler(cfg config.ChatConfig, sessions *browser.SessionManager) *Handler {
	return &Handler{
		cfg:      cfg,
		sessions: sessions,
		input:    NewInputDriver(cfg.Selectors),
		observer: NewResponseObserver(cfg.Selectors, cfg.PollInterval()),
	}
}

// WithTranscript attaches an exchange recorder.
func (h *Handler) WithTranscript(rec *transcript.Recorder) *Handler {
	h.recorder = rec
	return h
}

// CreateMessage drives one full exchange and yields exactly one TextChunk
// followed by one UsageChunk. Any failure arrives on the error channel before
// any chunk is produced; both channels are closed when the call finishes.
func (h *Handler) CreateMessage(ctx context.Context, systemPrompt string, turns []Turn) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk, 2)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(chunks)

		text, err := h.exchange(ctx, EncodePrompt(systemPrompt, turns))
		if err != nil {
			errs <- err
			return
		}
		chunks <- TextChunk{Text: text}
		chunks <- UsageChunk{}
	}()

	return chunks, errs
}

// exchange runs session readiness, injection, and response observation for
// one encoded prompt.
func (h *Handler) exchange(ctx context.Context, prompt string) (string, error) {
	requestID := uuid.NewString()
	opCtx, cancel := context.WithTimeout(ctx, h.cfg.OperationTimeout())
	defer cancel()

	page, err := h.sessions.EnsureReady(opCtx)
	if err != nil {
		return "", err
	}

	before, err := h.observer.CountResponses(opCtx, page)
	if err != nil {
		h.noteFailure(requestID, err)
		return "", err
	}

	start := time.Now()
	if err := h.input.Submit(opCtx, page, prompt); err != nil {
		h.noteFailure(requestID, err)
		return "", err
	}

	text, err := h.observer.Await(opCtx, page, before)
	if err != nil {
		h.noteFailure(requestID, err)
		return "", err
	}

	log.Printf("[req:%s] response extracted (%d chars in %s)", requestID, len(text), time.Since(start).Round(time.Millisecond))
	if h.recorder != nil {
		h.recorder.Log(requestID, prompt, text, time.Since(start))
	}
	return text, nil
}

// noteFailure re-checks liveness after an interaction failure. A dead page or
// connection is torn down so the next call reinitializes; a merely slow page
// keeps its session.
func (h *Handler) noteFailure(requestID string, err error) {
	if h.sessions.InvalidateIfDead() {
		log.Printf("[req:%s] session dropped after failure: %v", requestID, err)
	}
}

// CompletePrompt drives a single user turn and returns the concatenated text.
func (h *Handler) CompletePrompt(ctx context.Context, text string) (string, error) {
	chunks, errs := h.CreateMessage(ctx, "", []Turn{UserTurn(text)})

	var b strings.Builder
	for chunk := range chunks {
		if tc, ok := chunk.(TextChunk); ok {
			b.WriteString(tc.Text)
		}
	}
	if err := <-errs; err != nil {
		return "", err
	}
	return b.String(), nil
}

// Model reports static metadata for the bridged model. No network interaction.
func (h *Handler) Model() (string, ModelInfo) {
	return h.cfg.ModelName, ModelInfo{
		ContextWindow:   contextWindow,
		MaxOutputTokens: h.cfg.MaxOutputTokens,
		SupportsImages:  false,
		SupportsTools:   false,
		SupportsCaching: false,
	}
}

// CountTokens estimates tokens as ceil(characters/4) over text blocks. This
// is a documented approximation; the web application exposes no tokenizer.
func CountTokens(blocks []ContentBlock) int {
	chars := 0
	for _, block := range blocks {
		if block.Kind == BlockKindText {
			chars += len(block.Text)
		}
	}
	return (chars + 3) / 4
}

// Dispose awaits any in-flight initialization and tears the session down.
// Safe to call multiple times.
func (h *Handler) Dispose(ctx context.Context) {
	h.sessions.Dispose(ctx)
}
