package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// RodConnector implements Connector on top of go-rod.
type RodConnector struct{}

func NewRodConnector() *RodConnector {
	return &RodConnector{}
}

func (c *RodConnector) Connect(ctx context.Context, controlURL string) (Handle, error) {
	// The browser handle must outlive the initialization call, so it gets its
	// own cancellable context rather than the caller's deadline.
	browserCtx, cancel := context.WithCancel(context.Background())
	b := rod.New().ControlURL(controlURL).Context(browserCtx)

	done := make(chan error, 1)
	go func() { done <- b.Connect() }()
	select {
	case err := <-done:
		if err != nil {
			cancel()
			return nil, fmt.Errorf("connect to %s: %w", controlURL, err)
		}
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}

	return &rodHandle{browser: b, cancel: cancel}, nil
}

type rodHandle struct {
	browser *rod.Browser
	cancel  context.CancelFunc
}

func (h *rodHandle) Pages(ctx context.Context) ([]Page, error) {
	pages, err := h.browser.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	out := make([]Page, 0, len(pages))
	for _, p := range pages {
		out = append(out, &rodPage{browser: h.browser, page: p})
	}
	return out, nil
}

func (h *rodHandle) OpenPage(ctx context.Context, url string) (Page, error) {
	p, err := h.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return &rodPage{browser: h.browser, page: p}, nil
}

// Alive probes the connection with a cheap CDP round trip.
func (h *rodHandle) Alive() bool {
	_, err := h.browser.Version()
	return err == nil
}

func (h *rodHandle) OnDisconnect(fn func()) {
	events := h.browser.Event()
	go func() {
		// The event channel closes when the CDP connection drops.
		for range events {
		}
		fn()
	}()
}

// Detach cancels the CDP client without issuing Browser.close, leaving the
// underlying browser (and any user session in it) running.
func (h *rodHandle) Detach() error {
	h.cancel()
	return nil
}

type rodPage struct {
	browser *rod.Browser
	page    *rod.Page
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	// Best-effort load wait; the readiness signal is the input surface, not onload.
	_ = pg.WaitLoad()
	return nil
}

func (p *rodPage) WaitVisible(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("wait visible %s: %w", selector, err)
	}
	return nil
}

func (p *rodPage) WaitHidden(ctx context.Context, selector string) error {
	for {
		has, el, err := p.page.Context(ctx).Has(selector)
		if err != nil {
			return fmt.Errorf("query %s: %w", selector, err)
		}
		if !has {
			return nil
		}
		if visible, err := el.Visible(); err == nil && !visible {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait hidden %s: %w", selector, ctx.Err())
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (p *rodPage) Focus(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", selector, err)
	}
	if err := el.Focus(); err != nil {
		return fmt.Errorf("focus %s: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (p *rodPage) InsertText(ctx context.Context, text string) error {
	if err := p.page.Context(ctx).InsertText(text); err != nil {
		return fmt.Errorf("insert text: %w", err)
	}
	return nil
}

func (p *rodPage) Eval(ctx context.Context, js string, args ...interface{}) (json.RawMessage, error) {
	res, err := p.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("evaluate: empty result")
	}
	return res.Value.MarshalJSON()
}

// Alive probes the page's target info.
func (p *rodPage) Alive() bool {
	_, err := p.page.Info()
	return err == nil
}

func (p *rodPage) OnClose(fn func()) {
	targetID := p.page.TargetID
	go p.browser.EachEvent(func(e *proto.TargetTargetDestroyed) bool {
		if e.TargetID == targetID {
			fn()
			return true
		}
		return false
	})()
}

func (p *rodPage) OnCrash(fn func()) {
	go p.page.EachEvent(func(e *proto.InspectorTargetCrashed) bool {
		fn()
		return true
	})()
}

func (p *rodPage) OnPageError(fn func(message string)) {
	go p.page.EachEvent(func(e *proto.RuntimeExceptionThrown) bool {
		if e.ExceptionDetails != nil {
			msg := e.ExceptionDetails.Text
			if e.ExceptionDetails.Exception != nil && e.ExceptionDetails.Exception.Description != "" {
				msg = e.ExceptionDetails.Exception.Description
			}
			fn(msg)
		}
		return false
	})()
}
