package workflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/signal-service/internal/domain"
	"github.com/spec-kit/signal-service/internal/repository"
)

// memStatusRepo is an in-memory StatusRepository honoring the
// expected-current-id append contract.
type memStatusRepo struct {
	statuses map[int64][]domain.Status
	nextID   int
}

func newMemStatusRepo() *memStatusRepo {
	return &memStatusRepo{statuses: make(map[int64][]domain.Status)}
}

func (r *memStatusRepo) GetCurrent(_ context.Context, signalID int64) (*domain.Status, error) {
	history := r.statuses[signalID]
	if len(history) == 0 {
		return nil, fmt.Errorf("no status for signal %d", signalID)
	}
	current := history[len(history)-1]
	return &current, nil
}

func (r *memStatusRepo) Append(_ context.Context, status *domain.Status, expectedCurrentID string) error {
	history := r.statuses[status.SignalID]
	currentID := ""
	if len(history) > 0 {
		currentID = history[len(history)-1].ID
	}
	if currentID != expectedCurrentID {
		return repository.ErrStatusConflict
	}
	r.nextID++
	status.ID = fmt.Sprintf("status-%d", r.nextID)
	status.CreatedAt = time.Now()
	r.statuses[status.SignalID] = append(history, *status)
	return nil
}

func (r *memStatusRepo) ListBySignal(_ context.Context, signalID int64) ([]domain.Status, error) {
	return r.statuses[signalID], nil
}

func (r *memStatusRepo) CountBySignalAndState(_ context.Context, signalID int64, state domain.SignalState) (int, error) {
	count := 0
	for _, status := range r.statuses[signalID] {
		if status.State == state {
			count++
		}
	}
	return count, nil
}

func newTestEngine() (*Engine, *memStatusRepo) {
	repo := newMemStatusRepo()
	return NewEngine(repo, nil, zap.NewNop()), repo
}

func agentActor(caps ...domain.Capability) domain.Actor {
	return domain.Actor{Email: "agent@example.org", Capabilities: caps}
}

func testSignal(id int64) *domain.Signal {
	return &domain.Signal{
		ID:       id,
		Title:    "Overflowing bin",
		Text:     "The bin on the corner has been overflowing for days.",
		Priority: domain.PriorityNormal,
		Reporter: domain.Reporter{Email: "reporter@example.org"},
	}
}

func advance(t *testing.T, engine *Engine, signal *domain.Signal, states ...domain.SignalState) {
	t.Helper()
	for _, state := range states {
		input := TransitionInput{TargetState: state, Actor: domain.SystemActor()}
		if state == domain.StateReadyToSend {
			target := domain.TargetAPICityControl
			input.TargetAPI = &target
		}
		if state == domain.StateClosed || state == domain.StateReopened {
			input.Text = "because"
		}
		_, err := engine.RequestTransition(context.Background(), signal, input)
		require.NoError(t, err, "advancing to %s", state)
	}
}

func TestRequestTransitionFirstStatusMustBeNew(t *testing.T) {
	engine, _ := newTestEngine()
	signal := testSignal(1)

	_, err := engine.RequestTransition(context.Background(), signal, TransitionInput{
		TargetState: domain.StateInProgress,
		Actor:       domain.SystemActor(),
	})

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.StateEmpty, invalid.From)

	_, err = engine.RequestTransition(context.Background(), signal, TransitionInput{
		TargetState: domain.StateNew,
		Actor:       domain.SystemActor(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StateNew, signal.Status.State)
}

func TestRequestTransitionRejectsIllegalEdge(t *testing.T) {
	engine, _ := newTestEngine()
	signal := testSignal(1)
	advance(t, engine, signal, domain.StateNew)

	_, err := engine.RequestTransition(context.Background(), signal, TransitionInput{
		TargetState: domain.StateSent,
		Actor:       domain.SystemActor(),
	})

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.StateNew, invalid.From)
	assert.Equal(t, domain.StateSent, invalid.To)
	assert.Equal(t, domain.StateNew, signal.Status.State, "failed transition must not change state")
}

func TestReactionRequestedNeedsValidReporterEmail(t *testing.T) {
	engine, _ := newTestEngine()
	signal := testSignal(1)
	signal.Reporter.Email = "not-an-email"
	advance(t, engine, signal, domain.StateNew)

	_, err := engine.RequestTransition(context.Background(), signal, TransitionInput{
		TargetState: domain.StateReactionRequested,
		Actor:       domain.SystemActor(),
	})

	var precondition *PreconditionError
	require.ErrorAs(t, err, &precondition)
	assert.Equal(t, "reporter_email", precondition.Field)
}

func TestReadyToSendRequiresTargetAPI(t *testing.T) {
	engine, _ := newTestEngine()
	signal := testSignal(1)
	advance(t, engine, signal, domain.StateNew)

	_, err := engine.RequestTransition(context.Background(), signal, TransitionInput{
		TargetState: domain.StateReadyToSend,
		Actor:       agentActor(domain.CapabilityPushToCityControl),
	})

	var precondition *PreconditionError
	require.ErrorAs(t, err, &precondition)
	assert.Equal(t, "target_api", precondition.Field)
}

func TestReadyToSendRequiresPushCapability(t *testing.T) {
	engine, _ := newTestEngine()
	signal := testSignal(1)
	advance(t, engine, signal, domain.StateNew)

	target := domain.TargetAPICityControl
	_, err := engine.RequestTransition(context.Background(), signal, TransitionInput{
		TargetState: domain.StateReadyToSend,
		TargetAPI:   &target,
		Actor:       agentActor(domain.CapabilityManageSignals),
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = engine.RequestTransition(context.Background(), signal, TransitionInput{
		TargetState: domain.StateReadyToSend,
		TargetAPI:   &target,
		Actor:       agentActor(domain.CapabilityPushToCityControl),
	})
	assert.NoError(t, err)
}

func TestTargetAPIOnlyAllowedForReadyToSend(t *testing.T) {
	engine, _ := newTestEngine()
	signal := testSignal(1)
	advance(t, engine, signal, domain.StateNew)

	target := domain.TargetAPICityControl
	_, err := engine.RequestTransition(context.Background(), signal, TransitionInput{
		TargetState: domain.StateInProgress,
		TargetAPI:   &target,
		Actor:       domain.SystemActor(),
	})

	var precondition *PreconditionError
	require.ErrorAs(t, err, &precondition)
	assert.Equal(t, "target_api", precondition.Field)
}

func TestClosedAndReopenedRequireText(t *testing.T) {
	engine, _ := newTestEngine()
	signal := testSignal(1)
	advance(t, engine, signal, domain.StateNew)

	_, err := engine.RequestTransition(context.Background(), signal, TransitionInput{
		TargetState: domain.StateClosed,
		Text:        "   ",
		Actor:       domain.SystemActor(),
	})
	var precondition *PreconditionError
	require.ErrorAs(t, err, &precondition)
	assert.Equal(t, "text", precondition.Field)

	advance(t, engine, signal, domain.StateClosed)

	_, err = engine.RequestTransition(context.Background(), signal, TransitionInput{
		TargetState: domain.StateReopened,
		Actor:       domain.SystemActor(),
	})
	require.ErrorAs(t, err, &precondition)
	assert.Equal(t, "text", precondition.Field)
}

func TestConcurrentModificationDetected(t *testing.T) {
	engine, repo := newTestEngine()
	signal := testSignal(1)
	advance(t, engine, signal, domain.StateNew)

	// Another request appended behind our back.
	stale := *signal
	staleStatus := *signal.Status
	stale.Status = &staleStatus
	advance(t, engine, signal, domain.StateInProgress)

	_, err := engine.RequestTransition(context.Background(), &stale, TransitionInput{
		TargetState: domain.StateOnHold,
		Actor:       domain.SystemActor(),
	})
	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.True(t, IsRetryable(err))

	history, err := repo.ListBySignal(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, history, 2, "conflicting append must not add a row")
}

func TestSystemAuthoredStatusHasNoCreator(t *testing.T) {
	engine, _ := newTestEngine()
	signal := testSignal(1)

	status, err := engine.RequestTransition(context.Background(), signal, TransitionInput{
		TargetState: domain.StateNew,
		Actor:       domain.SystemActor(),
	})
	require.NoError(t, err)
	assert.Nil(t, status.CreatedBy)

	status, err = engine.RequestTransition(context.Background(), signal, TransitionInput{
		TargetState: domain.StateInProgress,
		Actor:       agentActor(),
	})
	require.NoError(t, err)
	require.NotNil(t, status.CreatedBy)
	assert.Equal(t, "agent@example.org", *status.CreatedBy)
}

func TestReopenCountAndHistoryOrdering(t *testing.T) {
	engine, _ := newTestEngine()
	signal := testSignal(1)
	advance(t, engine, signal,
		domain.StateNew, domain.StateClosed, domain.StateReopened,
		domain.StateClosed, domain.StateReopened, domain.StateClosed)

	count, err := engine.ReopenCount(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	history, err := engine.History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, history, 6)
	assert.Equal(t, domain.StateNew, history[0].State)
	assert.Equal(t, domain.StateClosed, history[5].State)
}

func TestTerminalStatesOnlyReachableViaReopened(t *testing.T) {
	for _, terminal := range []domain.SignalState{domain.StateClosed, domain.StateCancelled} {
		assert.True(t, domain.CanTransition(terminal, domain.StateReopened))
		assert.False(t, domain.CanTransition(terminal, domain.StateInProgress))
		assert.False(t, domain.CanTransition(terminal, terminal))
	}
	assert.False(t, domain.CanTransition(domain.StateSent, domain.StateSent))
	assert.True(t, domain.CanTransition(domain.StateSent, domain.StateDoneExternal))
}
