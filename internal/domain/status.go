package domain

import "time"

// SignalState enumerates lifecycle states for signals.
type SignalState string

const (
	// StateEmpty is the pre-creation state; the only allowed successor is
	// StateNew, which is set when a signal is first stored.
	StateEmpty               SignalState = ""
	StateNew                 SignalState = "NEW"
	StateInProgress          SignalState = "IN_PROGRESS"
	StateScheduled           SignalState = "SCHEDULED"
	StateOnHold              SignalState = "ON_HOLD"
	StateReadyToSend         SignalState = "READY_TO_SEND"
	StateSent                SignalState = "SENT"
	StateSendFailed          SignalState = "SEND_FAILED"
	StateDoneExternal        SignalState = "DONE_EXTERNAL"
	StateClosed              SignalState = "CLOSED"
	StateCancelled           SignalState = "CANCELLED"
	StateReopened            SignalState = "REOPENED"
	StateReactionRequested   SignalState = "REACTION_REQUESTED"
	StateReactionReceived    SignalState = "REACTION_RECEIVED"
	StateSplitIntoChildren   SignalState = "SPLIT_INTO_CHILDREN"
	StateForwardedToExternal SignalState = "FORWARDED_TO_EXTERNAL"
)

// TargetAPI identifies the external system a READY_TO_SEND status is bound for.
type TargetAPI string

// TargetAPICityControl is currently the only supported dispatch target.
const TargetAPICityControl TargetAPI = "citycontrol"

// AllowedTransitions is the fixed directed graph of legal state changes.
// Self-loops are only legal where listed explicitly. CLOSED, CANCELLED and
// SPLIT_INTO_CHILDREN are terminal in the sense that no automatic
// processing follows, but all three can be re-entered via REOPENED.
var AllowedTransitions = map[SignalState][]SignalState{
	StateEmpty: {StateNew},
	StateNew: {
		StateNew, StateInProgress, StateScheduled, StateOnHold,
		StateReadyToSend, StateReactionRequested, StateForwardedToExternal,
		StateSplitIntoChildren, StateClosed, StateCancelled,
	},
	StateInProgress: {
		StateInProgress, StateScheduled, StateOnHold, StateReadyToSend,
		StateReactionRequested, StateForwardedToExternal, StateClosed,
		StateCancelled,
	},
	StateScheduled: {
		StateScheduled, StateInProgress, StateOnHold, StateReadyToSend,
		StateReactionRequested, StateClosed, StateCancelled,
	},
	StateOnHold: {
		StateInProgress, StateScheduled, StateReadyToSend, StateCancelled,
	},
	StateReadyToSend: {StateSent, StateSendFailed},
	StateSent:        {StateDoneExternal},
	StateSendFailed: {
		StateInProgress, StateReadyToSend, StateClosed, StateCancelled,
	},
	StateDoneExternal: {
		StateInProgress, StateClosed, StateCancelled,
	},
	StateClosed:    {StateReopened},
	StateCancelled: {StateReopened},
	StateReopened: {
		StateInProgress, StateScheduled, StateReadyToSend,
		StateReactionRequested, StateClosed, StateCancelled,
	},
	StateReactionRequested: {
		StateInProgress, StateScheduled, StateReactionRequested,
		StateReactionReceived, StateClosed, StateCancelled,
	},
	StateReactionReceived: {
		StateInProgress, StateScheduled, StateReactionRequested,
		StateClosed, StateCancelled,
	},
	StateSplitIntoChildren:   {StateReopened},
	StateForwardedToExternal: {StateInProgress, StateDoneExternal, StateClosed, StateCancelled},
}

// CanTransition reports whether next is a legal successor of current.
func CanTransition(current, next SignalState) bool {
	for _, candidate := range AllowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Status is one immutable lifecycle record for a signal. A nil CreatedBy
// means the status was authored by the system itself.
type Status struct {
	ID        string
	SignalID  int64
	State     SignalState
	Text      string
	TargetAPI *TargetAPI
	CreatedBy *string
	CreatedAt time.Time
}

// IsSystemAuthored reports whether the status was written without a human actor.
func (s *Status) IsSystemAuthored() bool {
	return s.CreatedBy == nil
}
