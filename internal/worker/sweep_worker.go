package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/signal-service/internal/citycontrol"
)

// StartSweepLoop periodically reclaims signals stuck in READY_TO_SEND.
// Runs until the context is cancelled.
func StartSweepLoop(ctx context.Context, recovery *citycontrol.StuckRecovery, interval, timeout time.Duration, logger *zap.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := recovery.Sweep(ctx, timeout); err != nil {
					logger.Error("stuck signal sweep failed", zap.Error(err))
				}
			}
		}
	}()
}
