package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/signal-service/internal/domain"
	"github.com/spec-kit/signal-service/internal/events"
	"github.com/spec-kit/signal-service/internal/repository"
	"github.com/spec-kit/signal-service/internal/workflow"
)

// SignalService coordinates signal intake and status workflows.
type SignalService struct {
	signals    repository.SignalRepository
	roundtrips repository.RoundTripRepository
	engine     *workflow.Engine
	dispatcher events.Dispatcher
}

// SignalDependencies bundles collaborators for the signal service.
type SignalDependencies struct {
	SignalRepo    repository.SignalRepository
	RoundTripRepo repository.RoundTripRepository
	Engine        *workflow.Engine
	Dispatcher    events.Dispatcher
}

// SignalCreateInput describes the intake payload.
type SignalCreateInput struct {
	Title         string
	Text          string
	Priority      domain.SignalPriority
	Reporter      domain.Reporter
	Location      domain.Location
	IncidentEndAt *time.Time
}

// StatusChangeInput describes a requested status change.
type StatusChangeInput struct {
	TargetState domain.SignalState
	Text        string
	TargetAPI   *domain.TargetAPI
}

// NewSignalService constructs the service.
func NewSignalService(deps SignalDependencies) *SignalService {
	return &SignalService{
		signals:    deps.SignalRepo,
		roundtrips: deps.RoundTripRepo,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
	}
}

// CreateSignal registers a new signal and places it in the NEW state.
func (s *SignalService) CreateSignal(ctx context.Context, actor domain.Actor, input SignalCreateInput) (*domain.Signal, error) {
	title := strings.TrimSpace(input.Title)
	text := strings.TrimSpace(input.Text)
	if title == "" {
		return nil, errors.New("title is required")
	}
	if text == "" {
		return nil, errors.New("text is required")
	}

	signal := &domain.Signal{
		Title:         title,
		Text:          text,
		Priority:      input.Priority,
		Reporter:      input.Reporter,
		Location:      input.Location,
		IncidentEndAt: input.IncidentEndAt,
	}
	if signal.Priority == "" {
		signal.Priority = domain.PriorityNormal
	}

	if err := s.signals.Create(ctx, signal); err != nil {
		return nil, err
	}

	if _, err := s.engine.RequestTransition(ctx, signal, workflow.TransitionInput{
		TargetState: domain.StateNew,
		Actor:       actor,
	}); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventSignalCreated,
		SignalID: signal.ID,
		Actor:    actor.Email,
		Payload: events.SignalCreatedPayload{
			Priority: signal.Priority,
			Title:    signal.Title,
		},
	})
	return signal, nil
}

// GetSignal fetches a signal with its current status.
func (s *SignalService) GetSignal(ctx context.Context, id int64) (*domain.Signal, error) {
	return s.signals.GetByID(ctx, id)
}

// GetSignalHistory returns the complete status history, oldest first.
func (s *SignalService) GetSignalHistory(ctx context.Context, id int64) ([]domain.Status, error) {
	if _, err := s.signals.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.engine.History(ctx, id)
}

// ChangeStatus applies a status transition on behalf of an agent. Regular
// changes require the manage capability; placing a signal in READY_TO_SEND
// additionally requires the push capability, enforced by the engine.
func (s *SignalService) ChangeStatus(ctx context.Context, actor domain.Actor, signalID int64, input StatusChangeInput) (*domain.Status, error) {
	if !actor.HasCapability(domain.CapabilityManageSignals) {
		return nil, workflow.ErrPermissionDenied
	}

	signal, err := s.signals.GetByID(ctx, signalID)
	if err != nil {
		return nil, err
	}

	return s.engine.RequestTransition(ctx, signal, workflow.TransitionInput{
		TargetState: input.TargetState,
		Text:        strings.TrimSpace(input.Text),
		TargetAPI:   input.TargetAPI,
		Actor:       actor,
	})
}

// ReopenCount reports how often the signal has been reopened.
func (s *SignalService) ReopenCount(ctx context.Context, signalID int64) (int, error) {
	return s.engine.ReopenCount(ctx, signalID)
}

// RoundTripCount reports how often the signal was dispatched externally.
func (s *SignalService) RoundTripCount(ctx context.Context, signalID int64) (int, error) {
	return s.roundtrips.CountBySignal(ctx, signalID)
}

func (s *SignalService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
