package workflow

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/signal-service/internal/domain"
	"github.com/spec-kit/signal-service/internal/events"
	"github.com/spec-kit/signal-service/internal/repository"
)

// Engine validates and applies state transitions against the allowed
// transition table and per-transition business rules. On success a new
// immutable status is appended to the signal's history; failures leave the
// history untouched.
type Engine struct {
	statuses   repository.StatusRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewEngine constructs the engine.
func NewEngine(statuses repository.StatusRepository, dispatcher events.Dispatcher, logger *zap.Logger) *Engine {
	return &Engine{statuses: statuses, dispatcher: dispatcher, logger: logger}
}

// TransitionInput describes a requested state change.
type TransitionInput struct {
	TargetState domain.SignalState
	Text        string
	TargetAPI   *domain.TargetAPI
	Actor       domain.Actor
}

// RequestTransition applies the requested transition to the signal. The
// signal must carry its current status (nil for a freshly created record).
func (e *Engine) RequestTransition(ctx context.Context, signal *domain.Signal, input TransitionInput) (*domain.Status, error) {
	currentState := domain.StateEmpty
	expectedCurrentID := ""
	if signal.Status != nil {
		currentState = signal.Status.State
		expectedCurrentID = signal.Status.ID
	}

	if !domain.CanTransition(currentState, input.TargetState) {
		return nil, &InvalidTransitionError{From: currentState, To: input.TargetState}
	}
	if err := e.checkPreconditions(signal, input); err != nil {
		return nil, err
	}

	status := &domain.Status{
		SignalID:  signal.ID,
		State:     input.TargetState,
		Text:      strings.TrimSpace(input.Text),
		TargetAPI: input.TargetAPI,
	}
	if !input.Actor.IsSystem() {
		email := input.Actor.Email
		status.CreatedBy = &email
	}

	if err := e.statuses.Append(ctx, status, expectedCurrentID); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrConcurrentModification
		}
		return nil, err
	}

	e.logger.Info("status transition applied",
		zap.Int64("signal_id", signal.ID),
		zap.String("from", string(currentState)),
		zap.String("to", string(input.TargetState)),
		zap.Bool("system", input.Actor.IsSystem()))

	e.publishStatusChanged(ctx, signal.ID, currentState, status, input.Actor)

	signal.Status = status
	return status, nil
}

func (e *Engine) checkPreconditions(signal *domain.Signal, input TransitionInput) error {
	switch input.TargetState {
	case domain.StateReactionRequested:
		if !validEmail(signal.Reporter.Email) {
			return &PreconditionError{
				Field:  "reporter_email",
				Reason: "a valid reporter email address is required to request a reaction",
			}
		}
	case domain.StateReadyToSend:
		if input.TargetAPI == nil {
			return &PreconditionError{
				Field:  "target_api",
				Reason: "target API is required when changing state to READY_TO_SEND",
			}
		}
		if *input.TargetAPI == domain.TargetAPICityControl &&
			!input.Actor.HasCapability(domain.CapabilityPushToCityControl) {
			return ErrPermissionDenied
		}
	case domain.StateClosed, domain.StateReopened:
		if strings.TrimSpace(input.Text) == "" {
			return &PreconditionError{
				Field:  "text",
				Reason: "an explanatory text is required for this state",
			}
		}
	}

	if input.TargetState != domain.StateReadyToSend && input.TargetAPI != nil {
		return &PreconditionError{
			Field:  "target_api",
			Reason: "target API can only be set when changing state to READY_TO_SEND",
		}
	}
	return nil
}

// ReopenCount reports how often the signal has passed through REOPENED.
// Derived for external reporting only; it never gates transitions.
func (e *Engine) ReopenCount(ctx context.Context, signalID int64) (int, error) {
	return e.statuses.CountBySignalAndState(ctx, signalID, domain.StateReopened)
}

// History returns the signal's full status log in chronological order.
func (e *Engine) History(ctx context.Context, signalID int64) ([]domain.Status, error) {
	return e.statuses.ListBySignal(ctx, signalID)
}

func (e *Engine) publishStatusChanged(ctx context.Context, signalID int64, oldState domain.SignalState, status *domain.Status, actor domain.Actor) {
	if e.dispatcher == nil {
		return
	}
	_ = e.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSignalStatusChanged,
		SignalID:  signalID,
		Actor:     actor.Email,
		Timestamp: time.Now(),
		Payload: events.SignalStatusChangedPayload{
			StatusID:  status.ID,
			OldState:  oldState,
			NewState:  status.State,
			Text:      status.Text,
			TargetAPI: status.TargetAPI,
		},
	})
}

func validEmail(address string) bool {
	if strings.TrimSpace(address) == "" {
		return false
	}
	_, err := mail.ParseAddress(address)
	return err == nil
}
