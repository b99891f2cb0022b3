package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/signal-service/internal/domain"
)

// SignalRepository encapsulates signal persistence.
type SignalRepository interface {
	Create(ctx context.Context, signal *domain.Signal) error
	GetByID(ctx context.Context, id int64) (*domain.Signal, error)
	// ListStuckSending returns signals whose current status has the given
	// state and target API and was recorded at or before the cutoff.
	ListStuckSending(ctx context.Context, state domain.SignalState, target domain.TargetAPI, before time.Time) ([]domain.Signal, error)
}

type signalRepository struct {
	pool *pgxpool.Pool
}

// NewSignalRepository instantiates repository.
func NewSignalRepository(pool *pgxpool.Pool) SignalRepository {
	return &signalRepository{pool: pool}
}

func (r *signalRepository) Create(ctx context.Context, signal *domain.Signal) error {
	const query = `
        INSERT INTO signals (title, text, priority, reporter_email, reporter_phone,
            location_city, location_street, location_house_number, location_postal_code,
            location_borough, location_lat, location_lng, incident_end_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		signal.Title,
		signal.Text,
		signal.Priority,
		signal.Reporter.Email,
		signal.Reporter.Phone,
		signal.Location.City,
		signal.Location.Street,
		signal.Location.HouseNumber,
		signal.Location.PostalCode,
		signal.Location.Borough,
		signal.Location.Lat,
		signal.Location.Lng,
		signal.IncidentEndAt,
	).Scan(&signal.ID, &signal.CreatedAt, &signal.UpdatedAt)
}

const signalColumns = `
        s.id, s.title, s.text, s.priority, s.reporter_email, s.reporter_phone,
        s.location_city, s.location_street, s.location_house_number, s.location_postal_code,
        s.location_borough, s.location_lat, s.location_lng, s.incident_end_at,
        s.created_at, s.updated_at,
        st.id, st.state, st.text, st.target_api, st.created_by, st.created_at`

const currentStatusJoin = `
        LEFT JOIN LATERAL (
            SELECT id, state, text, target_api, created_by, created_at
            FROM statuses WHERE signal_id = s.id
            ORDER BY created_at DESC, id DESC LIMIT 1
        ) st ON TRUE`

func (r *signalRepository) GetByID(ctx context.Context, id int64) (*domain.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals s` + currentStatusJoin + ` WHERE s.id=$1`
	return scanSignal(r.pool.QueryRow(ctx, query, id))
}

func (r *signalRepository) ListStuckSending(ctx context.Context, state domain.SignalState, target domain.TargetAPI, before time.Time) ([]domain.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals s` + currentStatusJoin + `
        WHERE st.state=$1 AND st.target_api=$2 AND st.created_at <= $3
        ORDER BY st.created_at ASC`
	rows, err := r.pool.Query(ctx, query, state, target, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Signal
	for rows.Next() {
		signal, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *signal)
	}
	return result, rows.Err()
}

func scanSignal(row pgx.Row) (*domain.Signal, error) {
	var (
		signal    domain.Signal
		statusID  *string
		state     *domain.SignalState
		text      *string
		targetAPI *domain.TargetAPI
		createdBy *string
		createdAt *time.Time
	)
	if err := row.Scan(
		&signal.ID,
		&signal.Title,
		&signal.Text,
		&signal.Priority,
		&signal.Reporter.Email,
		&signal.Reporter.Phone,
		&signal.Location.City,
		&signal.Location.Street,
		&signal.Location.HouseNumber,
		&signal.Location.PostalCode,
		&signal.Location.Borough,
		&signal.Location.Lat,
		&signal.Location.Lng,
		&signal.IncidentEndAt,
		&signal.CreatedAt,
		&signal.UpdatedAt,
		&statusID,
		&state,
		&text,
		&targetAPI,
		&createdBy,
		&createdAt,
	); err != nil {
		return nil, err
	}
	if statusID != nil {
		signal.Status = &domain.Status{
			ID:        *statusID,
			SignalID:  signal.ID,
			State:     *state,
			Text:      *text,
			TargetAPI: targetAPI,
			CreatedBy: createdBy,
			CreatedAt: *createdAt,
		}
	}
	return &signal, nil
}
