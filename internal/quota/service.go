package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/config"
)

// ErrNoRecord is returned by stores when an increment targets a key that was
// never materialized. The service always materializes records first, so
// seeing this error indicates a bug in the caller.
var ErrNoRecord = errors.New("quota: no record for key")

// Service gates and accounts per-user consumption of AI requests over fixed
// calendar windows. All state lives in the injected Store; the service owns
// the window arithmetic and lazy rollover.
type Service struct {
	store Store
	cfg   config.AIConfig

	// now is swapped out in tests to pin window boundaries.
	now func() time.Time
}

func NewService(store Store, cfg config.AIConfig) *Service {
	return &Service{
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
}

func (s *Service) defaultLimit(period Period) int {
	if period == PeriodHour {
		return s.cfg.DefaultHourlyLimit
	}
	return s.cfg.DefaultDailyLimit
}

// resolve rolls the record over if its window has expired and returns the
// current record. Records are created lazily on first touch.
func (s *Service) resolve(ctx context.Context, userID uuid.UUID, period Period) (*Record, error) {
	ws := period.WindowStart(s.now())

	rec, err := s.store.GetOrCreate(ctx, userID, period, s.defaultLimit(period), ws)
	if err != nil {
		return nil, fmt.Errorf("resolving quota record: %w", err)
	}

	if rec.WindowStart.Before(ws) {
		if _, err := s.store.RollOver(ctx, userID, period, ws); err != nil {
			return nil, fmt.Errorf("rolling over quota window: %w", err)
		}
		rec.Used = 0
		rec.WindowStart = ws
	}
	return rec, nil
}

func (s *Service) status(rec *Record) Status {
	remaining := rec.Limit - rec.Used
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Period:    rec.Period,
		Used:      rec.Used,
		Limit:     rec.Limit,
		Remaining: remaining,
		ResetsAt:  rec.Period.NextReset(s.now()),
		Allowed:   remaining > 0,
	}
}

// CheckLimit reports whether the user may consume another request in the
// period. Pure read: never mutates the counter.
func (s *Service) CheckLimit(ctx context.Context, userID uuid.UUID, period Period) (Status, error) {
	if !period.Valid() {
		return Status{}, fmt.Errorf("unknown quota period %q", period)
	}
	rec, err := s.resolve(ctx, userID, period)
	if err != nil {
		return Status{}, err
	}
	return s.status(rec), nil
}

// CheckAndIncrement atomically consumes one request if the limit allows it.
// Returns *ExceededError when denied; concurrent callers can never drive the
// counter past the limit within a window.
func (s *Service) CheckAndIncrement(ctx context.Context, userID uuid.UUID, period Period) (Status, error) {
	if !period.Valid() {
		return Status{}, fmt.Errorf("unknown quota period %q", period)
	}
	if _, err := s.resolve(ctx, userID, period); err != nil {
		return Status{}, err
	}

	rec, ok, err := s.store.IncrementIfBelow(ctx, userID, period)
	if err != nil {
		return Status{}, fmt.Errorf("incrementing quota: %w", err)
	}
	st := s.status(rec)
	if !ok {
		return st, &ExceededError{Status: st}
	}
	return st, nil
}

// IncrementUsage records one consumed request without checking the limit.
// Callers are expected to have passed CheckLimit first, or to use
// CheckAndIncrement which combines the two atomically.
func (s *Service) IncrementUsage(ctx context.Context, userID uuid.UUID, period Period) (*Record, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("unknown quota period %q", period)
	}
	if _, err := s.resolve(ctx, userID, period); err != nil {
		return nil, err
	}
	rec, err := s.store.Increment(ctx, userID, period)
	if err != nil {
		return nil, fmt.Errorf("incrementing quota: %w", err)
	}
	return rec, nil
}

// UsageStats returns the same view as CheckLimit, for display.
func (s *Service) UsageStats(ctx context.Context, userID uuid.UUID, period Period) (Status, error) {
	return s.CheckLimit(ctx, userID, period)
}

// ResetUsage zeroes the counter and starts a fresh window at now. Admin and
// test surface only; bypasses rollover.
func (s *Service) ResetUsage(ctx context.Context, userID uuid.UUID, period Period) error {
	if !period.Valid() {
		return fmt.Errorf("unknown quota period %q", period)
	}
	if _, err := s.resolve(ctx, userID, period); err != nil {
		return err
	}
	return s.store.Reset(ctx, userID, period, period.WindowStart(s.now()))
}

// SetLimitOverride replaces the default limit for the user and period. An
// override for a user with no prior record materializes one.
func (s *Service) SetLimitOverride(ctx context.Context, userID uuid.UUID, period Period, limit int) error {
	if !period.Valid() {
		return fmt.Errorf("unknown quota period %q", period)
	}
	if limit < 0 {
		return fmt.Errorf("quota limit must be non-negative, got %d", limit)
	}
	if _, err := s.resolve(ctx, userID, period); err != nil {
		return err
	}
	return s.store.SetLimit(ctx, userID, period, limit)
}
