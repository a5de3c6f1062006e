package preferences

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemRepository is the in-process Repository for single-node use and tests.
type MemRepository struct {
	mu    sync.RWMutex
	prefs map[uuid.UUID]*Preferences
}

func NewMemRepository() *MemRepository {
	return &MemRepository{prefs: make(map[uuid.UUID]*Preferences)}
}

func clone(p *Preferences) *Preferences {
	cp := *p
	if p.RateLimitOverride != nil {
		v := *p.RateLimitOverride
		cp.RateLimitOverride = &v
	}
	cp.Shortcuts = make(map[string]Shortcut, len(p.Shortcuts))
	for name, sc := range p.Shortcuts {
		cp.Shortcuts[name] = sc
	}
	return &cp
}

func (r *MemRepository) Get(_ context.Context, userID uuid.UUID) (*Preferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prefs[userID]
	if !ok {
		return nil, nil
	}
	return clone(p), nil
}

func (r *MemRepository) Save(_ context.Context, prefs *Preferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[prefs.UserID] = clone(prefs)
	return nil
}
