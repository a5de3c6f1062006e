package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter Filter) ([]*Task, error)
	SearchByTitle(ctx context.Context, userID uuid.UUID, keyword string) ([]*Task, error)
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const taskColumns = `id, user_id, title, description, is_completed, created_at, updated_at`

func scanTask(row pgx.Row) (*Task, error) {
	task := &Task{}
	err := row.Scan(&task.ID, &task.UserID, &task.Title, &task.Description,
		&task.IsCompleted, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *postgresRepository) Create(ctx context.Context, task *Task) error {
	query := `
		INSERT INTO tasks (id, user_id, title, description, is_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		task.ID, task.UserID, task.Title, task.Description,
		task.IsCompleted, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying task by id: %w", err)
	}
	return task, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter Filter) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}

	switch filter.Status {
	case "pending":
		query += ` AND is_completed = FALSE`
	case "completed":
		query += ` AND is_completed = TRUE`
	}
	if filter.TitleContains != "" {
		args = append(args, "%"+filter.TitleContains+"%")
		query += fmt.Sprintf(` AND title ILIKE $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

func (r *postgresRepository) SearchByTitle(ctx context.Context, userID uuid.UUID, keyword string) ([]*Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND title ILIKE $2
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID, "%"+keyword+"%")
	if err != nil {
		return nil, fmt.Errorf("searching tasks by title: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

func (r *postgresRepository) Update(ctx context.Context, task *Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, is_completed = $4, updated_at = $5
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		task.ID, task.Title, task.Description, task.IsCompleted, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectTasks(rows pgx.Rows) ([]*Task, error) {
	tasks := make([]*Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task rows: %w", err)
	}
	return tasks, nil
}
