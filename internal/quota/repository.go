package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the PostgreSQL Store: one ai_quotas row per (user_id, period),
// with conditional UPDATEs supplying the per-key atomicity.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `user_id, period, limit_requests, used, window_start`

func (r *Repository) GetOrCreate(ctx context.Context, userID uuid.UUID, period Period, limit int, windowStart time.Time) (*Record, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ai_quotas (user_id, period, limit_requests, used, window_start)
		 VALUES ($1, $2, $3, 0, $4)
		 ON CONFLICT (user_id, period) DO NOTHING`,
		userID, period, limit, windowStart)
	if err != nil {
		return nil, fmt.Errorf("ensuring quota row: %w", err)
	}

	var rec Record
	err = r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM ai_quotas WHERE user_id = $1 AND period = $2`,
		userID, period,
	).Scan(&rec.UserID, &rec.Period, &rec.Limit, &rec.Used, &rec.WindowStart)
	if err != nil {
		return nil, fmt.Errorf("fetching quota row: %w", err)
	}
	return &rec, nil
}

func (r *Repository) RollOver(ctx context.Context, userID uuid.UUID, period Period, windowStart time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE ai_quotas
		 SET used = 0, window_start = $3, updated_at = NOW()
		 WHERE user_id = $1 AND period = $2 AND window_start < $3`,
		userID, period, windowStart)
	if err != nil {
		return false, fmt.Errorf("rolling over quota window: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) IncrementIfBelow(ctx context.Context, userID uuid.UUID, period Period) (*Record, bool, error) {
	var rec Record
	err := r.pool.QueryRow(ctx,
		`UPDATE ai_quotas
		 SET used = used + 1, updated_at = NOW()
		 WHERE user_id = $1 AND period = $2 AND used < limit_requests
		 RETURNING `+recordColumns,
		userID, period,
	).Scan(&rec.UserID, &rec.Period, &rec.Limit, &rec.Used, &rec.WindowStart)
	if err == nil {
		return &rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("conditional quota increment: %w", err)
	}

	// At or over the limit (or no row, which resolve() rules out): read back.
	err = r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM ai_quotas WHERE user_id = $1 AND period = $2`,
		userID, period,
	).Scan(&rec.UserID, &rec.Period, &rec.Limit, &rec.Used, &rec.WindowStart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrNoRecord
		}
		return nil, false, fmt.Errorf("fetching quota row after denial: %w", err)
	}
	return &rec, false, nil
}

func (r *Repository) Increment(ctx context.Context, userID uuid.UUID, period Period) (*Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx,
		`UPDATE ai_quotas
		 SET used = used + 1, updated_at = NOW()
		 WHERE user_id = $1 AND period = $2
		 RETURNING `+recordColumns,
		userID, period,
	).Scan(&rec.UserID, &rec.Period, &rec.Limit, &rec.Used, &rec.WindowStart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("incrementing quota: %w", err)
	}
	return &rec, nil
}

func (r *Repository) Reset(ctx context.Context, userID uuid.UUID, period Period, windowStart time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE ai_quotas
		 SET used = 0, window_start = $3, updated_at = NOW()
		 WHERE user_id = $1 AND period = $2`,
		userID, period, windowStart)
	if err != nil {
		return fmt.Errorf("resetting quota: %w", err)
	}
	return nil
}

func (r *Repository) SetLimit(ctx context.Context, userID uuid.UUID, period Period, limit int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ai_quotas (user_id, period, limit_requests, used, window_start)
		 VALUES ($1, $2, $3, 0, $4)
		 ON CONFLICT (user_id, period)
		 DO UPDATE SET limit_requests = EXCLUDED.limit_requests, updated_at = NOW()`,
		userID, period, limit, period.WindowStart(time.Now()))
	if err != nil {
		return fmt.Errorf("setting quota override: %w", err)
	}
	return nil
}
