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

// fakeSignalRepo serves signals from memory and answers stuck queries from
// the signals' current status timestamps.
type fakeSignalRepo struct {
	signals map[int64]*domain.Signal
}

func newFakeSignalRepo(signals ...*domain.Signal) *fakeSignalRepo {
	repo := &fakeSignalRepo{signals: make(map[int64]*domain.Signal)}
	for _, signal := range signals {
		repo.signals[signal.ID] = signal
	}
	return repo
}

func (r *fakeSignalRepo) Create(_ context.Context, signal *domain.Signal) error {
	r.signals[signal.ID] = signal
	return nil
}

func (r *fakeSignalRepo) GetByID(_ context.Context, id int64) (*domain.Signal, error) {
	signal, ok := r.signals[id]
	if !ok {
		return nil, fmt.Errorf("signal %d not found", id)
	}
	return signal, nil
}

func (r *fakeSignalRepo) ListStuckSending(_ context.Context, state domain.SignalState, target domain.TargetAPI, before time.Time) ([]domain.Signal, error) {
	var stuck []domain.Signal
	for _, signal := range r.signals {
		status := signal.Status
		if status == nil || status.State != state {
			continue
		}
		if status.TargetAPI == nil || *status.TargetAPI != target {
			continue
		}
		if status.CreatedAt.After(before) {
			continue
		}
		stuck = append(stuck, *signal)
	}
	return stuck, nil
}

// fakeRoundTripRepo is an in-memory ledger.
type fakeRoundTripRepo struct {
	counts  map[int64]int
	created int
}

func newFakeRoundTripRepo() *fakeRoundTripRepo {
	return &fakeRoundTripRepo{counts: make(map[int64]int)}
}

func (r *fakeRoundTripRepo) CountBySignal(_ context.Context, signalID int64) (int, error) {
	return r.counts[signalID], nil
}

func (r *fakeRoundTripRepo) Create(_ context.Context, signalID int64) (*domain.RoundTripRecord, error) {
	r.counts[signalID]++
	r.created++
	return &domain.RoundTripRecord{
		ID:        fmt.Sprintf("rt-%d-%d", signalID, r.counts[signalID]),
		SignalID:  signalID,
		CreatedAt: time.Now(),
	}, nil
}

func (r *fakeRoundTripRepo) EnsureCount(_ context.Context, signalID int64, atLeast int) error {
	if r.counts[signalID] < atLeast {
		r.counts[signalID] = atLeast
	}
	return nil
}

// fakeStatusRepo implements the append-only status log for engine-backed
// tests, honoring the expected-current-id contract.
type fakeStatusRepo struct {
	statuses map[int64][]domain.Status
	nextID   int
}

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{statuses: make(map[int64][]domain.Status)}
}

func (r *fakeStatusRepo) GetCurrent(_ context.Context, signalID int64) (*domain.Status, error) {
	history := r.statuses[signalID]
	if len(history) == 0 {
		return nil, fmt.Errorf("no status for signal %d", signalID)
	}
	current := history[len(history)-1]
	return &current, nil
}

func (r *fakeStatusRepo) Append(_ context.Context, status *domain.Status, expectedCurrentID string) error {
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

func (r *fakeStatusRepo) ListBySignal(_ context.Context, signalID int64) ([]domain.Status, error) {
	return r.statuses[signalID], nil
}

func (r *fakeStatusRepo) CountBySignalAndState(_ context.Context, signalID int64, state domain.SignalState) (int, error) {
	count := 0
	for _, status := range r.statuses[signalID] {
		if status.State == state {
			count++
		}
	}
	return count, nil
}

// signalInState builds a signal fixture whose current status carries the
// given state, aligned with the status log in statuses.
func signalInState(statuses *fakeStatusRepo, id int64, state domain.SignalState, statusAge time.Duration) *domain.Signal {
	signal := fixtureSignal()
	signal.ID = id

	target := domain.TargetAPICityControl
	statuses.nextID++
	status := domain.Status{
		ID:        fmt.Sprintf("status-%d", statuses.nextID),
		SignalID:  id,
		State:     state,
		CreatedAt: time.Now().Add(-statusAge),
	}
	if state == domain.StateReadyToSend {
		status.TargetAPI = &target
	}
	statuses.statuses[id] = append(statuses.statuses[id], status)
	signal.Status = &status
	return signal
}

func newBridgeEngine(statuses *fakeStatusRepo) *workflow.Engine {
	return workflow.NewEngine(statuses, nil, zap.NewNop())
}
