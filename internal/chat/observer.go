package chat

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"chatbridge-mcp-server/internal/browser"
	"chatbridge-mcp-server/internal/config"
)

const (
	// How long the processing indicator gets to appear after submission.
	// Fast generations can finish before it ever shows, so this is a hint.
	processingAppearTimeout = 10 * time.Second
	// How long the processing indicator gets to clear. A stuck or mismatched
	// indicator must not consume the operation deadline; the container poll
	// is the correctness gate and needs the remaining budget.
	processingClearTimeout = 30 * time.Second
	// How long the best-effort post-completion ready check gets.
	readyCheckTimeout = 5 * time.Second
)

const countElementsJS = `(sel) => document.querySelectorAll(sel).length`

// extractResponseJS reads the content panel nested in the response container
// at a fixed index. The found/panel flags distinguish a vanished container
// from a container without a content panel.
const extractResponseJS = `(sel, idx, panelSel) => {
	const containers = document.querySelectorAll(sel);
	const container = containers[idx];
	if (!container) return { found: false, panel: false, text: "" };
	const panel = container.querySelector(panelSel);
	if (!panel) return { found: true, panel: false, text: "" };
	return { found: true, panel: true, text: panel.innerText || "" };
}`

// entityDecoder maps the five standard HTML/XML character entities back to
// their literal characters. Single pass, so already-decoded ampersands are
// not re-expanded.
var entityDecoder = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

// DecodeEntities resolves the five handled entities in rendered reply text.
func DecodeEntities(s string) string {
	return entityDecoder.Replace(s)
}

// ResponseObserver detects when the chat application has produced a new reply
// and extracts its text. The application exposes no completion event, so the
// core wait primitive is a bounded poll over the response-container count.
type ResponseObserver struct {
	selectors    config.SelectorConfig
	pollInterval time.Duration

	appearTimeout time.Duration
	clearTimeout  time.Duration
	readyTimeout  time.Duration
}

func NewResponseObserver(selectors config.SelectorConfig, pollInterval time.Duration) *ResponseObserver {
	return &ResponseObserver{
		selectors:     selectors,
		pollInterval:  pollInterval,
		appearTimeout: processingAppearTimeout,
		clearTimeout:  processingClearTimeout,
		readyTimeout:  readyCheckTimeout,
	}
}

// CountResponses returns the number of response containers currently in the
// document. The facade snapshots this immediately before submission.
func (o *ResponseObserver) CountResponses(ctx context.Context, page browser.Page) (int, error) {
	raw, err := page.Eval(ctx, countElementsJS, o.selectors.Response)
	if err != nil {
		return 0, interactionErr("response count", "count %q: %w", o.selectors.Response, err)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, interactionErr("response count", "decode count result: %w", err)
	}
	return n, nil
}

// Await blocks until a response container beyond the before-submission count
// appears, then returns the decoded text of the container at index before.
// That is the first one appended after the snapshot, never the last one
// present, so batched appends and pre-existing history cannot misattribute
// the reply.
func (o *ResponseObserver) Await(ctx context.Context, page browser.Page, before int) (string, error) {
	o.bracketGeneration(ctx, page)

	if err := o.pollForNewResponse(ctx, page, before); err != nil {
		return "", err
	}

	text, err := o.extract(ctx, page, before)
	if err != nil {
		return "", err
	}

	o.confirmReady(ctx, page)
	return text, nil
}

// bracketGeneration waits for the processing indicator to appear and then
// disappear. The indicator can flicker or be missed entirely, so timeouts
// here are logged and never fatal; the container poll is the correctness gate.
func (o *ResponseObserver) bracketGeneration(ctx context.Context, page browser.Page) {
	appearCtx, cancel := context.WithTimeout(ctx, o.appearTimeout)
	err := page.WaitVisible(appearCtx, o.selectors.Stop)
	cancel()
	if err != nil {
		log.Printf("processing indicator never appeared (continuing): %v", err)
		return
	}

	// Bounded like the appear wait: the disappear wait must never exhaust
	// the operation deadline the container poll runs on.
	clearCtx, cancel := context.WithTimeout(ctx, o.clearTimeout)
	err = page.WaitHidden(clearCtx, o.selectors.Stop)
	cancel()
	if err != nil {
		log.Printf("processing indicator did not clear (continuing): %v", err)
	}
}

func (o *ResponseObserver) pollForNewResponse(ctx context.Context, page browser.Page, before int) error {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		count, err := o.CountResponses(ctx, page)
		if err == nil && count > before {
			return nil
		}
		if err != nil {
			log.Printf("response poll error (retrying): %v", err)
		}

		select {
		case <-ctx.Done():
			return interactionErr("response wait", "no new response appeared before deadline: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (o *ResponseObserver) extract(ctx context.Context, page browser.Page, index int) (string, error) {
	raw, err := page.Eval(ctx, extractResponseJS, o.selectors.Response, index, o.selectors.Content)
	if err != nil {
		return "", interactionErr("response extract", "read response %d: %w", index, err)
	}

	var result struct {
		Found bool   `json:"found"`
		Panel bool   `json:"panel"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", interactionErr("response extract", "decode extract result: %w", err)
	}
	if !result.Found {
		return "", interactionErr("response extract", "response container %d missing after poll succeeded", index)
	}
	if !result.Panel {
		return "", interactionErr("response extract", "response container %d has no content panel %q", index, o.selectors.Content)
	}

	return strings.TrimSpace(DecodeEntities(result.Text)), nil
}

// confirmReady checks that the ready indicator is back. Best effort only: it
// has never been shown to be load-bearing, so failure is just logged.
func (o *ResponseObserver) confirmReady(ctx context.Context, page browser.Page) {
	readyCtx, cancel := context.WithTimeout(ctx, o.readyTimeout)
	defer cancel()
	if err := page.WaitVisible(readyCtx, o.selectors.Ready); err != nil {
		log.Printf("ready indicator not visible after response (continuing): %v", err)
	}
}
