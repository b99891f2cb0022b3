package domain

import (
	"fmt"
	"time"
)

// MaxRoundTrips is the hard ceiling on successful dispatches of one signal
// to CityControl. Exceeding it is fatal, not retried.
const MaxRoundTrips = 99

// RoundTripRecord marks one successful case-creation round trip to
// CityControl for a signal. Records are append-only; their count per signal
// drives the sequence number in the external case identifier.
type RoundTripRecord struct {
	ID        string
	SignalID  int64
	CreatedAt time.Time
}

// CaseID formats the external case identifier for a signal and 1-based
// sequence number, e.g. SIG-123.01.
func CaseID(signalID int64, sequence int) string {
	return fmt.Sprintf("SIG-%d.%02d", signalID, sequence)
}

// SignalDisplayID is the bare external reference without a sequence suffix.
func SignalDisplayID(signalID int64) string {
	return fmt.Sprintf("SIG-%d", signalID)
}
