// Package browser owns the lifecycle of the debuggable Chrome connection and
// the page handle used to drive the chat application. The automation surface
// is an injected dependency so the session manager and the chat adapter can be
// exercised against fakes without a real browser.
package browser

import (
	"context"
	"encoding/json"
)

// Connector dials a CDP control endpoint and returns a browser handle.
type Connector interface {
	Connect(ctx context.Context, controlURL string) (Handle, error)
}

// Handle is an attached browser connection. Ownership is exclusive to the
// SessionManager; a handle becomes unusable the instant the underlying
// connection reports closed.
type Handle interface {
	// Pages enumerates the currently open pages.
	Pages(ctx context.Context) ([]Page, error)
	// OpenPage creates a new page at the given URL.
	OpenPage(ctx context.Context, url string) (Page, error)
	// Alive probes the connection (lazy liveness check before each use).
	Alive() bool
	// OnDisconnect registers a callback fired once when the connection drops.
	OnDisconnect(fn func())
	// Detach releases the control connection without closing the browser,
	// which may be a user's own session.
	Detach() error
}

// Page is one attached tab.
type Page interface {
	// URL returns the page's current URL, or "" if it cannot be read.
	URL() string
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until the selector matches a visible element.
	WaitVisible(ctx context.Context, selector string) error
	// WaitHidden blocks until the selector matches nothing visible.
	WaitHidden(ctx context.Context, selector string) error
	Focus(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	// InsertText types into the focused element the way user input would,
	// firing the page's editing events.
	InsertText(ctx context.Context, text string) error
	// Eval runs a JS function in the page and returns its JSON-encoded result.
	Eval(ctx context.Context, js string, args ...interface{}) (json.RawMessage, error)
	// Alive probes the page (lazy liveness check before each use).
	Alive() bool
	// OnClose fires once when the page's target is destroyed.
	OnClose(fn func())
	// OnCrash fires once when the page's renderer crashes.
	OnCrash(fn func())
	// OnPageError fires for uncaught in-page script errors.
	OnPageError(fn func(message string))
}
