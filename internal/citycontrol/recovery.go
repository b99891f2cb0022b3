package citycontrol

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/signal-service/internal/domain"
	"github.com/spec-kit/signal-service/internal/repository"
	"github.com/spec-kit/signal-service/internal/workflow"
)

const stuckRecoveryText = "Signal sat in READY_TO_SEND for too long; dispatch marked as failed."

// StuckRecovery moves signals that have been waiting for a CityControl
// dispatch past the configured timeout into SEND_FAILED, so operators can
// decide whether to push again.
type StuckRecovery struct {
	signals repository.SignalRepository
	engine  *workflow.Engine
	logger  *zap.Logger
	now     func() time.Time
}

// NewStuckRecovery constructs the sweep.
func NewStuckRecovery(signals repository.SignalRepository, engine *workflow.Engine, logger *zap.Logger) *StuckRecovery {
	return &StuckRecovery{signals: signals, engine: engine, logger: logger, now: time.Now}
}

// Sweep reclaims every stuck signal once and returns how many it moved.
// A failure on one signal is logged and does not abort the batch.
func (r *StuckRecovery) Sweep(ctx context.Context, timeout time.Duration) (int, error) {
	cutoff := r.now().Add(-timeout)
	stuck, err := r.signals.ListStuckSending(ctx, domain.StateReadyToSend, domain.TargetAPICityControl, cutoff)
	if err != nil {
		return 0, fmt.Errorf("listing stuck signals: %w", err)
	}

	recovered := 0
	for i := range stuck {
		signal := &stuck[i]
		_, err := r.engine.RequestTransition(ctx, signal, workflow.TransitionInput{
			TargetState: domain.StateSendFailed,
			Text:        stuckRecoveryText,
			Actor:       domain.SystemActor(),
		})
		if err != nil {
			r.logger.Warn("stuck signal recovery failed",
				zap.Int64("signal_id", signal.ID), zap.Error(err))
			continue
		}
		recovered++
	}

	if recovered > 0 {
		r.logger.Info("stuck signals recovered", zap.Int("count", recovered))
	}
	return recovered, nil
}
