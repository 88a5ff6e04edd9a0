package browser

import "fmt"

// DiscoveryError reports that no reachable debug endpoint exists on the
// configured port. Fatal for the current call, non-sticky: the next call
// retries discovery.
type DiscoveryError struct {
	Port int
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("no debuggable browser found on port %d (start Chrome with --remote-debugging-port=%d): %v", e.Port, e.Port, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// InitializationError reports a failed connect/navigate/readiness sequence.
// The session is left in the Failed state; the next call starts a fresh attempt.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("chat session initialization failed: %v", e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }
