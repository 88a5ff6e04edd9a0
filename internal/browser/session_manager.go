package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"chatbridge-mcp-server/internal/config"
	"chatbridge-mcp-server/internal/discovery"
)

// State describes the session lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SessionManager owns the browser and page handles for one chat session.
//
// Invariant: at most one connect+navigate sequence is in flight at any time.
// Concurrent EnsureReady callers join the same attempt via singleflight and
// all observe the same outcome. Invalidation callbacks fired by the underlying
// connection carry a generation number so a stale callback from a torn-down
// attempt cannot clobber a newer session.
type SessionManager struct {
	cfg       config.ChatConfig
	resolver  discovery.Resolver
	connector Connector
	flight    singleflight.Group

	mu         sync.Mutex
	state      State
	generation uint64
	handle     Handle
	page       Page
	inflight   <-chan struct{}
}

func NewSessionManager(cfg config.ChatConfig, resolver discovery.Resolver, connector Connector) *SessionManager {
	return &SessionManager{
		cfg:       cfg,
		resolver:  resolver,
		connector: connector,
	}
}

// EnsureReady guarantees that on successful return a live, navigated,
// input-ready page is available. Callers must not cache the page across
// calls; handles can be invalidated between any two awaits.
func (m *SessionManager) EnsureReady(ctx context.Context) (Page, error) {
	if p := m.readyPage(); p != nil {
		return p, nil
	}

	ch := m.flight.DoChan("init", func() (interface{}, error) {
		// Re-check under the flight: a caller may have joined just after a
		// successful attempt completed.
		if p := m.readyPage(); p != nil {
			return p, nil
		}
		return m.initialize()
	})

	// Fan the single result out through a closed channel so both this caller
	// and Dispose can observe completion without racing for the one value.
	done := make(chan struct{})
	var res singleflight.Result
	go func() {
		res = <-ch
		close(done)
	}()

	m.mu.Lock()
	m.inflight = done
	m.mu.Unlock()

	select {
	case <-done:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Page), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// readyPage returns the current page when state is Ready and both handles
// independently report live; nil otherwise.
func (m *SessionManager) readyPage() Page {
	m.mu.Lock()
	state, handle, page := m.state, m.handle, m.page
	m.mu.Unlock()

	if state != StateReady || handle == nil || page == nil {
		return nil
	}
	if !handle.Alive() || !page.Alive() {
		return nil
	}
	return page
}

// initialize runs one full discovery+connect+navigate+readiness sequence.
// Cancellation is deadline-only: the sequence carries the operation timeout
// rather than any single caller's context, since all concurrent callers share
// its outcome.
func (m *SessionManager) initialize() (Page, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.OperationTimeout())
	defer cancel()

	m.mu.Lock()
	m.state = StateInitializing
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	page, err := m.connectAndAttach(ctx, gen)
	if err != nil {
		m.Cleanup()
		m.mu.Lock()
		m.state = StateFailed
		m.mu.Unlock()
		return nil, err
	}

	m.mu.Lock()
	if m.generation != gen {
		// Invalidated while we were finishing up; treat as failure.
		m.mu.Unlock()
		return nil, &InitializationError{Err: errors.New("session invalidated during initialization")}
	}
	m.page = page
	m.state = StateReady
	m.mu.Unlock()

	log.Printf("chat session ready at %s", m.cfg.TargetURL)
	return page, nil
}

func (m *SessionManager) connectAndAttach(ctx context.Context, gen uint64) (Page, error) {
	endpoint, err := m.resolver.Resolve(ctx, m.cfg.DebugPort)
	if err != nil {
		if errors.Is(err, discovery.ErrNoEndpoint) {
			return nil, &DiscoveryError{Port: m.cfg.DebugPort, Err: err}
		}
		return nil, &InitializationError{Err: err}
	}

	handle, err := m.connector.Connect(ctx, endpoint)
	if err != nil {
		return nil, &InitializationError{Err: err}
	}

	m.mu.Lock()
	m.handle = handle
	m.mu.Unlock()

	handle.OnDisconnect(func() {
		m.invalidate(gen, "browser disconnected", false)
	})

	page, err := m.adoptPage(ctx, handle)
	if err != nil {
		return nil, &InitializationError{Err: err}
	}

	page.OnClose(func() {
		m.invalidate(gen, "page closed", true)
	})
	page.OnCrash(func() {
		m.invalidate(gen, "page crashed", true)
	})
	page.OnPageError(func(message string) {
		// Uncaught in-page errors are diagnostics, never fatal.
		log.Printf("page script error: %s", message)
	})

	// Readiness signal: the input surface is visible, so the application is
	// ready to accept a prompt.
	if err := page.WaitVisible(ctx, m.cfg.Selectors.Input); err != nil {
		return nil, &InitializationError{Err: fmt.Errorf("chat input surface never became visible: %w", err)}
	}

	return page, nil
}

// adoptPage reuses an open page already pointed at the target URL, preserving
// any login state in it, and opens a fresh one otherwise.
func (m *SessionManager) adoptPage(ctx context.Context, handle Handle) (Page, error) {
	pages, err := handle.Pages(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		if m.matchesTarget(p.URL()) {
			return p, nil
		}
	}

	page, err := handle.OpenPage(ctx, "about:blank")
	if err != nil {
		return nil, err
	}
	if !m.matchesTarget(page.URL()) {
		if err := page.Navigate(ctx, m.cfg.TargetURL); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// matchesTarget reports whether a page URL points at the configured chat
// application: same scheme and host, and a path extending the target's path
// at a "/" boundary. A plain string prefix would also match lookalike hosts
// such as chat.example-evil.test for target chat.example.
func (m *SessionManager) matchesTarget(raw string) bool {
	target, err := url.Parse(m.cfg.TargetURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != target.Scheme || u.Host != target.Host {
		return false
	}
	base := strings.TrimSuffix(target.Path, "/")
	if base == "" {
		return true
	}
	return u.Path == base || strings.HasPrefix(u.Path, base+"/")
}

// invalidate is the single entry point for asynchronous invalidation events.
// A generation mismatch means the event belongs to an already torn-down
// attempt and is ignored.
func (m *SessionManager) invalidate(gen uint64, reason string, pageOnly bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return
	}
	log.Printf("chat session invalidated: %s", reason)
	m.state = StateUninitialized
	m.page = nil
	if !pageOnly {
		m.handle = nil
	}
}

// Cleanup tears the session down. Idempotent: the ready flag and page handle
// are always cleared first; a still-connected browser handle is detached
// gracefully (never closed, the tab may belong to the user) and detach
// problems are logged, not returned.
func (m *SessionManager) Cleanup() {
	m.mu.Lock()
	m.generation++
	m.state = StateUninitialized
	m.page = nil
	handle := m.handle
	m.handle = nil
	m.mu.Unlock()

	if handle != nil && handle.Alive() {
		if err := handle.Detach(); err != nil {
			log.Printf("warning: browser detach failed: %v", err)
		}
	}
}

// InvalidateIfDead re-checks liveness and tears down when either handle is
// gone, so the next call reinitializes instead of retrying a dead session.
// Returns whether a teardown happened.
func (m *SessionManager) InvalidateIfDead() bool {
	m.mu.Lock()
	handle, page := m.handle, m.page
	m.mu.Unlock()

	if handle == nil && page == nil {
		return false
	}
	dead := (handle != nil && !handle.Alive()) || (page != nil && !page.Alive())
	if dead {
		m.Cleanup()
	}
	return dead
}

// Dispose awaits any in-flight initialization, success or failure, then tears
// down unconditionally. Safe to call multiple times.
func (m *SessionManager) Dispose(ctx context.Context) {
	m.mu.Lock()
	ch := m.inflight
	m.mu.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
		}
	}
	m.Cleanup()
}

// State reports the current lifecycle state.
func (m *SessionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Live reports whether both handles currently pass their liveness probes.
func (m *SessionManager) Live() bool {
	return m.readyPage() != nil
}
