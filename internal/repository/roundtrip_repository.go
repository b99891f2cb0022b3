package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/signal-service/internal/domain"
)

// RoundTripRepository stores the append-only dispatch ledger.
type RoundTripRepository interface {
	CountBySignal(ctx context.Context, signalID int64) (int, error)
	Create(ctx context.Context, signalID int64) (*domain.RoundTripRecord, error)
	// EnsureCount raises the ledger to at least the given count. Used when
	// CityControl reports a sequence number we never recorded, so that
	// case identifiers are never reused.
	EnsureCount(ctx context.Context, signalID int64, atLeast int) error
}

type roundTripRepository struct {
	pool *pgxpool.Pool
}

// NewRoundTripRepository builds repository.
func NewRoundTripRepository(pool *pgxpool.Pool) RoundTripRepository {
	return &roundTripRepository{pool: pool}
}

func (r *roundTripRepository) CountBySignal(ctx context.Context, signalID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM citycontrol_roundtrips WHERE signal_id=$1`,
		signalID).Scan(&count)
	return count, err
}

func (r *roundTripRepository) Create(ctx context.Context, signalID int64) (*domain.RoundTripRecord, error) {
	record := &domain.RoundTripRecord{SignalID: signalID}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO citycontrol_roundtrips (signal_id) VALUES ($1) RETURNING id, created_at`,
		signalID).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *roundTripRepository) EnsureCount(ctx context.Context, signalID int64, atLeast int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT id FROM signals WHERE id=$1 FOR UPDATE`, signalID); err != nil {
		return err
	}

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM citycontrol_roundtrips WHERE signal_id=$1`,
		signalID).Scan(&count); err != nil {
		return err
	}
	for i := count; i < atLeast; i++ {
		if _, err := tx.Exec(ctx,
			`INSERT INTO citycontrol_roundtrips (signal_id) VALUES ($1)`, signalID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
