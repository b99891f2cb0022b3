package citycontrol

import (
	"errors"
	"fmt"
)

// ErrRoundTripLimitExceeded is fatal: the signal was dispatched to
// CityControl too often already. Never retried; must be surfaced to an
// operator. No network call is made once the ledger hits the ceiling.
var ErrRoundTripLimitExceeded = errors.New("signal was sent to CityControl too often")

// ErrNotAwaitingDispatch is returned when the signal is no longer in
// READY_TO_SEND for CityControl, typically because a redelivered event
// reaches a dispatch that already completed. Safe to ignore.
var ErrNotAwaitingDispatch = errors.New("signal is not awaiting dispatch")

// ErrDispatchInFlight indicates another dispatch for the same signal holds
// the per-signal lock. Retryable after backoff.
var ErrDispatchInFlight = errors.New("a dispatch for this signal is already in flight")

// ProtocolError marks a malformed or unexpected StUF response: not XML,
// a missing or duplicated berichtcode, a code other than Bv03, or an Fo03
// fault. Retried a bounded number of times by the task layer.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("citycontrol protocol error: %s", e.Reason)
}

// TransportError marks a network-level failure (connection refused,
// timeout, non-2xx HTTP status). Retried a bounded number of times.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("citycontrol transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a dispatch error may be retried. Transport
// and protocol failures are transient; the round-trip ceiling and business
// rejections are not.
func IsRetryable(err error) bool {
	var protocolErr *ProtocolError
	var transportErr *TransportError
	return errors.As(err, &protocolErr) ||
		errors.As(err, &transportErr) ||
		errors.Is(err, ErrDispatchInFlight)
}
