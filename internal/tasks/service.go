package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

// Service owns task business rules. Every operation is scoped to a caller
// user id; a task belonging to another user yields ErrForbidden, which the
// HTTP and pipeline layers map to their own forbidden representations.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, title, description string) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len(title) > maxTitleLen {
		return nil, fmt.Errorf("%w: title exceeds %d characters", ErrValidation, maxTitleLen)
	}
	if len(description) > maxDescriptionLen {
		return nil, fmt.Errorf("%w: description exceeds %d characters", ErrValidation, maxDescriptionLen)
	}

	now := time.Now()
	task := &Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Get returns the task only if it exists and belongs to userID.
func (s *Service) Get(ctx context.Context, userID, taskID uuid.UUID) (*Task, error) {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}
	if task.UserID != userID {
		return nil, ErrForbidden
	}
	return task, nil
}

func (s *Service) Query(ctx context.Context, userID uuid.UUID, filter Filter) ([]*Task, error) {
	if !filter.ValidStatus() {
		return nil, fmt.Errorf("%w: status must be all, pending or completed", ErrValidation)
	}
	return s.repo.ListByUser(ctx, userID, filter)
}

func (s *Service) Update(ctx context.Context, userID, taskID uuid.UUID, req *UpdateTaskRequest) (*Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrValidation)
		}
		if len(title) > maxTitleLen {
			return nil, fmt.Errorf("%w: title exceeds %d characters", ErrValidation, maxTitleLen)
		}
		task.Title = title
	}
	if req.Description != nil {
		if len(*req.Description) > maxDescriptionLen {
			return nil, fmt.Errorf("%w: description exceeds %d characters", ErrValidation, maxDescriptionLen)
		}
		task.Description = *req.Description
	}
	if req.IsCompleted != nil {
		task.IsCompleted = *req.IsCompleted
	}
	task.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	if _, err := s.Get(ctx, userID, taskID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, taskID)
}

// Complete toggles the completion flag.
func (s *Service) Complete(ctx context.Context, userID, taskID uuid.UUID) (*Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	task.IsCompleted = !task.IsCompleted
	task.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Resolve maps a free-form target reference to exactly one of the user's
// tasks. A parseable UUID is treated as a task id; anything else is a title
// keyword. Zero matches is ErrNotFound; more than one is *AmbiguousError and
// the caller must not guess.
func (s *Service) Resolve(ctx context.Context, userID uuid.UUID, target string) (*Task, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("%w: empty task reference", ErrValidation)
	}

	if id, err := uuid.Parse(target); err == nil {
		return s.Get(ctx, userID, id)
	}

	matches, err := s.repo.SearchByTitle(ctx, userID, target)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, &AmbiguousError{Target: target, Candidates: matches}
	}
}
