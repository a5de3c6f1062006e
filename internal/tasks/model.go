package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	IsCompleted *bool   `json:"is_completed,omitempty"`
}

// Filter narrows Query results. Status is one of "", "all", "pending",
// "completed"; empty means all.
type Filter struct {
	Status        string `json:"status,omitempty"`
	TitleContains string `json:"title_contains,omitempty"`
}

func (f Filter) ValidStatus() bool {
	switch f.Status {
	case "", "all", "pending", "completed":
		return true
	}
	return false
}

type contextKey string

const taskCtxKey contextKey = "task"

func SetTaskInContext(ctx context.Context, task *Task) context.Context {
	return context.WithValue(ctx, taskCtxKey, task)
}

func GetTaskFromContext(ctx context.Context) *Task {
	task, _ := ctx.Value(taskCtxKey).(*Task)
	return task
}
