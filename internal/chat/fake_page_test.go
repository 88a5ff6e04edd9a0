package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// scriptedPage implements browser.Page against a tiny in-memory DOM model:
// a selector visibility map, a response-container count, and per-index panel
// texts. The Eval dispatch recognizes the scripts this package actually runs.
type scriptedPage struct {
	mu             sync.Mutex
	url            string
	alive          bool
	visible        map[string]bool
	count          int
	texts          map[int]string
	noPanel        bool
	dropContainers bool

	actions   []string
	inserted  []string
	extracted []int

	// onSendClick runs when the send selector is clicked, with the mutex
	// held; mutate fields directly, do not call page methods from it.
	sendSel     string
	onSendClick func(p *scriptedPage)
}

func newScriptedPage(url string) *scriptedPage {
	return &scriptedPage{
		url:     url,
		alive:   true,
		visible: make(map[string]bool),
		texts:   make(map[int]string),
	}
}

func (p *scriptedPage) setVisible(sel string, v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible[sel] = v
}

func (p *scriptedPage) setCount(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count = n
}

func (p *scriptedPage) actionLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.actions...)
}

func (p *scriptedPage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *scriptedPage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, "navigate:"+url)
	p.url = url
	return nil
}

func (p *scriptedPage) WaitVisible(_ context.Context, sel string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, "wait-visible:"+sel)
	if !p.visible[sel] {
		return fmt.Errorf("selector %q not visible", sel)
	}
	return nil
}

// WaitHidden blocks while the selector stays visible, the way the real page
// does, and only gives up when the context dies.
func (p *scriptedPage) WaitHidden(ctx context.Context, sel string) error {
	p.mu.Lock()
	p.actions = append(p.actions, "wait-hidden:"+sel)
	visible := p.visible[sel]
	p.mu.Unlock()
	if !visible {
		return nil
	}
	<-ctx.Done()
	return fmt.Errorf("selector %q still visible: %w", sel, ctx.Err())
}

func (p *scriptedPage) Focus(_ context.Context, sel string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, "focus:"+sel)
	return nil
}

func (p *scriptedPage) Click(_ context.Context, sel string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, "click:"+sel)
	if sel == p.sendSel && p.onSendClick != nil {
		p.onSendClick(p)
	}
	return nil
}

func (p *scriptedPage) InsertText(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, "insert")
	p.inserted = append(p.inserted, text)
	return nil
}

func (p *scriptedPage) Eval(_ context.Context, js string, args ...interface{}) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch js {
	case clearInputJS:
		p.actions = append(p.actions, "clear")
		return json.RawMessage(`true`), nil

	case countElementsJS:
		raw, err := json.Marshal(p.count)
		return raw, err

	case extractResponseJS:
		idx, ok := args[1].(int)
		if !ok {
			return nil, fmt.Errorf("extract index is %T, want int", args[1])
		}
		p.extracted = append(p.extracted, idx)
		result := map[string]interface{}{"found": false, "panel": false, "text": ""}
		if !p.dropContainers && idx < p.count {
			result["found"] = true
			if !p.noPanel {
				result["panel"] = true
				result["text"] = p.texts[idx]
			}
		}
		raw, err := json.Marshal(result)
		return raw, err
	}
	return nil, fmt.Errorf("unexpected script: %s", js)
}

func (p *scriptedPage) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alive
}

func (p *scriptedPage) OnClose(func())           {}
func (p *scriptedPage) OnCrash(func())           {}
func (p *scriptedPage) OnPageError(func(string)) {}
