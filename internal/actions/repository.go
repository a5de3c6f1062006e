package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the PostgreSQL Store. The CAS transitions are single
// conditional UPDATEs, so row-level locking in Postgres provides the
// one-winner guarantee.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const actionColumns = `id, user_id, action_type, params, confidence, confirmation_status,
	executed_status, related_task_id, result, error_message, created_at, confirmed_at, executed_at`

func scanAction(row pgx.Row) (*PendingAction, error) {
	a := &PendingAction{}
	var params []byte
	err := row.Scan(&a.ID, &a.UserID, &a.Type, &params, &a.Confidence,
		&a.ConfirmationStatus, &a.ExecutedStatus, &a.RelatedTaskID, &a.Result,
		&a.ErrorMessage, &a.CreatedAt, &a.ConfirmedAt, &a.ExecutedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(params, &a.Params); err != nil {
		return nil, fmt.Errorf("unmarshaling action params: %w", err)
	}
	return a, nil
}

func (r *Repository) Create(ctx context.Context, action *PendingAction) error {
	params, err := json.Marshal(action.Params)
	if err != nil {
		return fmt.Errorf("marshaling action params: %w", err)
	}

	query := `
		INSERT INTO task_actions (id, user_id, action_type, params, confidence,
			confirmation_status, executed_status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.pool.Exec(ctx, query,
		action.ID, action.UserID, action.Type, params, action.Confidence,
		action.ConfirmationStatus, action.ExecutedStatus, action.ErrorMessage,
		action.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting pending action: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*PendingAction, error) {
	query := `SELECT ` + actionColumns + ` FROM task_actions WHERE id = $1`

	action, err := scanAction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying action by id: %w", err)
	}
	return action, nil
}

func (r *Repository) ListPending(ctx context.Context, userID uuid.UUID) ([]*PendingAction, error) {
	query := `SELECT ` + actionColumns + `
		FROM task_actions
		WHERE user_id = $1 AND confirmation_status = 'pending'
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing pending actions: %w", err)
	}
	defer rows.Close()

	actions := make([]*PendingAction, 0)
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning action row: %w", err)
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating action rows: %w", err)
	}
	return actions, nil
}

func (r *Repository) ConfirmCAS(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE task_actions
		 SET confirmation_status = 'confirmed', executed_status = 'executing', confirmed_at = $2
		 WHERE id = $1 AND confirmation_status = 'pending'`,
		id, at)
	if err != nil {
		return false, fmt.Errorf("confirming action: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) RejectCAS(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE task_actions
		 SET confirmation_status = 'rejected', confirmed_at = $2
		 WHERE id = $1 AND confirmation_status = 'pending'`,
		id, at)
	if err != nil {
		return false, fmt.Errorf("rejecting action: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) SaveExecution(ctx context.Context, action *PendingAction) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE task_actions
		 SET executed_status = $2, related_task_id = $3, result = $4,
		     error_message = $5, executed_at = $6
		 WHERE id = $1`,
		action.ID, action.ExecutedStatus, action.RelatedTaskID, action.Result,
		action.ErrorMessage, action.ExecutedAt)
	if err != nil {
		return fmt.Errorf("saving action execution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
