package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/signal-service/internal/domain"
)

// ErrStatusConflict is returned when the signal's current status no longer
// matches the expected one at append time.
var ErrStatusConflict = errors.New("current status does not match expected")

// StatusRepository stores the append-only status log of a signal.
type StatusRepository interface {
	GetCurrent(ctx context.Context, signalID int64) (*domain.Status, error)
	// Append inserts a new status provided the signal's current status id
	// still equals expectedCurrentID (empty string for the first status).
	// Returns ErrStatusConflict otherwise.
	Append(ctx context.Context, status *domain.Status, expectedCurrentID string) error
	ListBySignal(ctx context.Context, signalID int64) ([]domain.Status, error)
	CountBySignalAndState(ctx context.Context, signalID int64, state domain.SignalState) (int, error)
}

type statusRepository struct {
	pool *pgxpool.Pool
}

// NewStatusRepository builds repository.
func NewStatusRepository(pool *pgxpool.Pool) StatusRepository {
	return &statusRepository{pool: pool}
}

const currentStatusQuery = `
        SELECT id, signal_id, state, text, target_api, created_by, created_at
        FROM statuses WHERE signal_id=$1
        ORDER BY created_at DESC, id DESC LIMIT 1`

func (r *statusRepository) GetCurrent(ctx context.Context, signalID int64) (*domain.Status, error) {
	var status domain.Status
	err := r.pool.QueryRow(ctx, currentStatusQuery, signalID).Scan(
		&status.ID,
		&status.SignalID,
		&status.State,
		&status.Text,
		&status.TargetAPI,
		&status.CreatedBy,
		&status.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// Append takes a row lock on the signal so that concurrent transition
// requests serialize; the expected-current check then decides who wins.
func (r *statusRepository) Append(ctx context.Context, status *domain.Status, expectedCurrentID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT id FROM signals WHERE id=$1 FOR UPDATE`, status.SignalID); err != nil {
		return err
	}

	var currentID string
	err = tx.QueryRow(ctx, `SELECT id FROM statuses WHERE signal_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		status.SignalID).Scan(&currentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if currentID != expectedCurrentID {
		return ErrStatusConflict
	}

	const insert = `
        INSERT INTO statuses (signal_id, state, text, target_api, created_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, insert,
		status.SignalID,
		status.State,
		status.Text,
		status.TargetAPI,
		status.CreatedBy,
	).Scan(&status.ID, &status.CreatedAt); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE signals SET updated_at=NOW() WHERE id=$1`, status.SignalID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *statusRepository) ListBySignal(ctx context.Context, signalID int64) ([]domain.Status, error) {
	const query = `
        SELECT id, signal_id, state, text, target_api, created_by, created_at
        FROM statuses WHERE signal_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, signalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Status
	for rows.Next() {
		var status domain.Status
		if err := rows.Scan(
			&status.ID,
			&status.SignalID,
			&status.State,
			&status.Text,
			&status.TargetAPI,
			&status.CreatedBy,
			&status.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, status)
	}
	return result, rows.Err()
}

func (r *statusRepository) CountBySignalAndState(ctx context.Context, signalID int64, state domain.SignalState) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM statuses WHERE signal_id=$1 AND state=$2`,
		signalID, state).Scan(&count)
	return count, err
}
