package quota

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists quota records partitioned by (user_id, period). Every method
// must be atomic per key; IncrementIfBelow in particular is the primitive that
// keeps concurrent check-and-increment pairs from overrunning the limit.
type Store interface {
	// GetOrCreate returns the record, creating it with the given limit and
	// window start if absent.
	GetOrCreate(ctx context.Context, userID uuid.UUID, period Period, limit int, windowStart time.Time) (*Record, error)

	// RollOver zeroes the counter and advances the window when the stored
	// window started before windowStart. Reports whether a reset happened.
	RollOver(ctx context.Context, userID uuid.UUID, period Period, windowStart time.Time) (bool, error)

	// IncrementIfBelow adds one to used only while used < limit, atomically.
	// Returns the record after the attempt and whether the increment applied.
	IncrementIfBelow(ctx context.Context, userID uuid.UUID, period Period) (*Record, bool, error)

	// Increment adds one to used unconditionally.
	Increment(ctx context.Context, userID uuid.UUID, period Period) (*Record, error)

	// Reset zeroes the counter and pins the window start, bypassing rollover.
	Reset(ctx context.Context, userID uuid.UUID, period Period, windowStart time.Time) error

	// SetLimit overrides the limit for all future checks on the key.
	SetLimit(ctx context.Context, userID uuid.UUID, period Period, limit int) error
}
