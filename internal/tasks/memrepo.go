package tasks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemRepository is an in-process Repository used by unit tests and the
// single-process deployment profile.
type MemRepository struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*Task
}

func NewMemRepository() *MemRepository {
	return &MemRepository{tasks: make(map[uuid.UUID]*Task)}
}

func (r *MemRepository) Create(_ context.Context, task *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r *MemRepository) GetByID(_ context.Context, id uuid.UUID) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *task
	return &cp, nil
}

func (r *MemRepository) ListByUser(_ context.Context, userID uuid.UUID, filter Filter) ([]*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Task, 0)
	for _, task := range r.tasks {
		if task.UserID != userID {
			continue
		}
		if filter.Status == "pending" && task.IsCompleted {
			continue
		}
		if filter.Status == "completed" && !task.IsCompleted {
			continue
		}
		if filter.TitleContains != "" &&
			!strings.Contains(strings.ToLower(task.Title), strings.ToLower(filter.TitleContains)) {
			continue
		}
		cp := *task
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemRepository) SearchByTitle(ctx context.Context, userID uuid.UUID, keyword string) ([]*Task, error) {
	return r.ListByUser(ctx, userID, Filter{TitleContains: keyword})
}

func (r *MemRepository) Update(_ context.Context, task *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return ErrNotFound
	}
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r *MemRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}
