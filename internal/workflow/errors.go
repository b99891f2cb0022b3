package workflow

import (
	"errors"
	"fmt"

	"github.com/spec-kit/signal-service/internal/domain"
)

// ErrPermissionDenied is returned when the actor lacks the capability a
// transition requires. Never retried.
var ErrPermissionDenied = errors.New("actor lacks required capability")

// ErrConcurrentModification is returned when the signal's current status
// changed between read and append. Callers should retry once with a fresh
// read.
var ErrConcurrentModification = errors.New("signal status changed concurrently")

// InvalidTransitionError signals that the target state is not reachable
// from the signal's current state.
type InvalidTransitionError struct {
	From domain.SignalState
	To   domain.SignalState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %q to %q", e.From, e.To)
}

// PreconditionError reports a field-level business-rule rejection for an
// otherwise legal transition.
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("transition precondition failed: %s: %s", e.Field, e.Reason)
}

// IsRetryable reports whether err may succeed when retried with fresh
// state. Only concurrent modifications qualify; business-rule rejections
// are surfaced to the caller as-is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
