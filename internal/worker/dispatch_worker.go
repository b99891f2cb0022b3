package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/signal-service/internal/citycontrol"
	"github.com/spec-kit/signal-service/internal/domain"
	"github.com/spec-kit/signal-service/internal/events"
	"github.com/spec-kit/signal-service/internal/observability"
	"github.com/spec-kit/signal-service/internal/repository"
	"github.com/spec-kit/signal-service/internal/workflow"
)

// DispatchWorker reacts to READY_TO_SEND transitions by pushing the signal
// to CityControl and recording a successful dispatch as a SENT status. A
// dispatch that fails for good leaves the signal in READY_TO_SEND; the
// stuck-transaction sweep moves it to SEND_FAILED after the timeout, and
// the ledger guarantees a retried dispatch reuses its sequence number.
type DispatchWorker struct {
	bridge  *citycontrol.OutgoingBridge
	signals repository.SignalRepository
	engine  *workflow.Engine
	retry   citycontrol.RetryPolicy
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewDispatchWorker constructs the worker.
func NewDispatchWorker(
	bridge *citycontrol.OutgoingBridge,
	signals repository.SignalRepository,
	engine *workflow.Engine,
	retry citycontrol.RetryPolicy,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *DispatchWorker {
	return &DispatchWorker{
		bridge:  bridge,
		signals: signals,
		engine:  engine,
		retry:   retry,
		metrics: metrics,
		logger:  logger,
	}
}

// Register subscribes the worker to status-changed events.
func (w *DispatchWorker) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventSignalStatusChanged, w.handleStatusChanged)
}

func (w *DispatchWorker) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SignalStatusChangedPayload)
	if !ok {
		return nil
	}
	if payload.NewState != domain.StateReadyToSend {
		return nil
	}
	if payload.TargetAPI == nil || *payload.TargetAPI != domain.TargetAPICityControl {
		return nil
	}

	w.dispatch(ctx, event.SignalID)
	return nil
}

func (w *DispatchWorker) dispatch(ctx context.Context, signalID int64) {
	var confirmation string
	err := w.retry.Execute(ctx, w.logger, func(ctx context.Context) error {
		result, dispatchErr := w.bridge.Dispatch(ctx, signalID)
		confirmation = result
		return dispatchErr
	})

	switch {
	case err == nil:
		w.metrics.RecordDispatch("sent")
		w.recordSent(ctx, signalID, confirmation)
	case errors.Is(err, citycontrol.ErrNotAwaitingDispatch):
		// Redelivered event for a dispatch that already completed.
		w.metrics.RecordDispatch("noop")
	default:
		// The signal stays in READY_TO_SEND: the stuck sweep reclaims it
		// after the timeout, and a lock-contention loser must never mark
		// the winner's in-flight dispatch as failed.
		w.metrics.RecordDispatch("failed")
		w.logger.Error("citycontrol dispatch failed, leaving signal for the stuck sweep",
			zap.Int64("signal_id", signalID), zap.Error(err))
	}
}

// recordSent moves the signal from READY_TO_SEND to SENT. A conflicting
// transition means another actor already resolved the dispatch, which is
// fine.
func (w *DispatchWorker) recordSent(ctx context.Context, signalID int64, confirmation string) {
	signal, err := w.signals.GetByID(ctx, signalID)
	if err != nil {
		w.logger.Error("loading signal after dispatch",
			zap.Int64("signal_id", signalID), zap.Error(err))
		return
	}

	_, err = w.engine.RequestTransition(ctx, signal, workflow.TransitionInput{
		TargetState: domain.StateSent,
		Text:        confirmation,
		Actor:       domain.SystemActor(),
	})
	if err != nil {
		var invalid *workflow.InvalidTransitionError
		if errors.As(err, &invalid) {
			w.logger.Debug("dispatch outcome already recorded",
				zap.Int64("signal_id", signalID))
			return
		}
		w.logger.Error("recording dispatch outcome",
			zap.Int64("signal_id", signalID), zap.Error(err))
	}
}
