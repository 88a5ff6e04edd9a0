package chat

import "fmt"

// InteractionError reports a failed exchange with the page after a session
// was established: a missing input surface or send control, a poll timeout,
// or a missing response container/content panel. The original cause is
// preserved for diagnostics.
type InteractionError struct {
	Op  string
	Err error
}

func (e *InteractionError) Error() string {
	return fmt.Sprintf("chat interaction failed (%s): %v", e.Op, e.Err)
}

func (e *InteractionError) Unwrap() error { return e.Err }

func interactionErr(op string, format string, args ...interface{}) *InteractionError {
	return &InteractionError{Op: op, Err: fmt.Errorf(format, args...)}
}
