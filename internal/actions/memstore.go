package actions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is the in-process Store used by unit tests and the
// single-process deployment profile. One mutex guards the map; CAS
// semantics follow from holding it across read-modify-write.
type MemStore struct {
	mu      sync.Mutex
	actions map[uuid.UUID]*PendingAction
}

func NewMemStore() *MemStore {
	return &MemStore{actions: make(map[uuid.UUID]*PendingAction)}
}

func clone(a *PendingAction) *PendingAction {
	cp := *a
	return &cp
}

func (s *MemStore) Create(_ context.Context, action *PendingAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[action.ID] = clone(action)
	return nil
}

func (s *MemStore) GetByID(_ context.Context, id uuid.UUID) (*PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok {
		return nil, nil
	}
	return clone(a), nil
}

func (s *MemStore) ListPending(_ context.Context, userID uuid.UUID) ([]*PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*PendingAction, 0)
	for _, a := range s.actions {
		if a.UserID == userID && a.ConfirmationStatus == ConfirmationPending {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) ConfirmCAS(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok || a.ConfirmationStatus != ConfirmationPending {
		return false, nil
	}
	a.ConfirmationStatus = ConfirmationConfirmed
	a.ConfirmedAt = &at
	a.ExecutedStatus = ExecutedExecuting
	return true, nil
}

func (s *MemStore) RejectCAS(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok || a.ConfirmationStatus != ConfirmationPending {
		return false, nil
	}
	a.ConfirmationStatus = ConfirmationRejected
	a.ConfirmedAt = &at
	return true, nil
}

func (s *MemStore) SaveExecution(_ context.Context, action *PendingAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[action.ID]
	if !ok {
		return ErrNotFound
	}
	a.ExecutedStatus = action.ExecutedStatus
	a.RelatedTaskID = action.RelatedTaskID
	a.Result = action.Result
	a.ErrorMessage = action.ErrorMessage
	a.ExecutedAt = action.ExecutedAt
	return nil
}
