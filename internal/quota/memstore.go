package quota

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memKey struct {
	userID uuid.UUID
	period Period
}

type memEntry struct {
	mu  sync.Mutex
	rec Record
}

// MemStore is an in-process Store: a map of per-key entries, each guarded by
// its own mutex so users never contend with each other. It backs the
// single-process deployment and the unit tests.
type MemStore struct {
	mu      sync.RWMutex
	entries map[memKey]*memEntry
}

func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[memKey]*memEntry)}
}

func (s *MemStore) entry(userID uuid.UUID, period Period, limit int, windowStart time.Time) *memEntry {
	key := memKey{userID: userID, period: period}

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[key]; ok {
		return e
	}
	e = &memEntry{rec: Record{
		UserID:      userID,
		Period:      period,
		Limit:       limit,
		Used:        0,
		WindowStart: windowStart,
	}}
	s.entries[key] = e
	return e
}

// lookup returns the entry without creating one.
func (s *MemStore) lookup(userID uuid.UUID, period Period) *memEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[memKey{userID: userID, period: period}]
}

func (s *MemStore) GetOrCreate(_ context.Context, userID uuid.UUID, period Period, limit int, windowStart time.Time) (*Record, error) {
	e := s.entry(userID, period, limit, windowStart)
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.rec
	return &rec, nil
}

func (s *MemStore) RollOver(_ context.Context, userID uuid.UUID, period Period, windowStart time.Time) (bool, error) {
	e := s.lookup(userID, period)
	if e == nil {
		return false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.rec.WindowStart.Before(windowStart) {
		return false, nil
	}
	e.rec.Used = 0
	e.rec.WindowStart = windowStart
	return true, nil
}

func (s *MemStore) IncrementIfBelow(_ context.Context, userID uuid.UUID, period Period) (*Record, bool, error) {
	e := s.lookup(userID, period)
	if e == nil {
		return nil, false, ErrNoRecord
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec.Used >= e.rec.Limit {
		rec := e.rec
		return &rec, false, nil
	}
	e.rec.Used++
	rec := e.rec
	return &rec, true, nil
}

func (s *MemStore) Increment(_ context.Context, userID uuid.UUID, period Period) (*Record, error) {
	e := s.lookup(userID, period)
	if e == nil {
		return nil, ErrNoRecord
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rec.Used++
	rec := e.rec
	return &rec, nil
}

func (s *MemStore) Reset(_ context.Context, userID uuid.UUID, period Period, windowStart time.Time) error {
	e := s.lookup(userID, period)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rec.Used = 0
	e.rec.WindowStart = windowStart
	return nil
}

func (s *MemStore) SetLimit(_ context.Context, userID uuid.UUID, period Period, limit int) error {
	e := s.entry(userID, period, limit, period.WindowStart(time.Now()))
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rec.Limit = limit
	return nil
}
