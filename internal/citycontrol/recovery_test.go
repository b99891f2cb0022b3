package citycontrol

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/signal-service/internal/domain"
)

func TestSweepRecoversOnlyStuckSignals(t *testing.T) {
	statuses := newFakeStatusRepo()
	signals := newFakeSignalRepo()
	for id := int64(1); id <= 5; id++ {
		require.NoError(t, signals.Create(context.Background(), signalInState(statuses, id, domain.StateReadyToSend, 48*time.Hour)))
	}
	for id := int64(6); id <= 10; id++ {
		require.NoError(t, signals.Create(context.Background(), signalInState(statuses, id, domain.StateReadyToSend, time.Minute)))
	}

	recovery := NewStuckRecovery(signals, newBridgeEngine(statuses), zap.NewNop())
	recovered, err := recovery.Sweep(context.Background(), 24*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, 5, recovered)

	for id := int64(1); id <= 5; id++ {
		history, err := statuses.ListBySignal(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, history, 2)
		final := history[1]
		assert.Equal(t, domain.StateSendFailed, final.State)
		assert.Equal(t, stuckRecoveryText, final.Text)
		assert.Nil(t, final.CreatedBy)
	}
	for id := int64(6); id <= 10; id++ {
		history, err := statuses.ListBySignal(context.Background(), id)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	}
}

func TestSweepIsIdempotentAcrossRuns(t *testing.T) {
	statuses := newFakeStatusRepo()
	signals := newFakeSignalRepo()
	stuck := signalInState(statuses, 1, domain.StateReadyToSend, 48*time.Hour)
	require.NoError(t, signals.Create(context.Background(), stuck))

	recovery := NewStuckRecovery(signals, newBridgeEngine(statuses), zap.NewNop())

	recovered, err := recovery.Sweep(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, recovered)

	recovered, err = recovery.Sweep(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, recovered)
}

func TestSweepWithNothingStuck(t *testing.T) {
	statuses := newFakeStatusRepo()
	signals := newFakeSignalRepo(signalInState(statuses, 1, domain.StateInProgress, 48*time.Hour))

	recovery := NewStuckRecovery(signals, newBridgeEngine(statuses), zap.NewNop())
	recovered, err := recovery.Sweep(context.Background(), 24*time.Hour)

	require.NoError(t, err)
	assert.Zero(t, recovered)
}
