package quota

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Period is a fixed calendar window over which usage is counted.
type Period string

const (
	PeriodDay  Period = "day"
	PeriodHour Period = "hour"
)

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	return p == PeriodDay || p == PeriodHour
}

// Length returns the size of the window.
func (p Period) Length() time.Duration {
	if p == PeriodHour {
		return time.Hour
	}
	return 24 * time.Hour
}

// WindowStart returns the start of the calendar window containing t.
// Day windows begin at midnight UTC, hour windows at the top of the hour.
func (p Period) WindowStart(t time.Time) time.Time {
	t = t.UTC()
	if p == PeriodHour {
		return t.Truncate(time.Hour)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextReset returns the start of the window after the one containing t.
func (p Period) NextReset(t time.Time) time.Time {
	return p.WindowStart(t).Add(p.Length())
}

// Record is one usage counter, keyed by (user_id, period).
type Record struct {
	UserID      uuid.UUID `json:"user_id"`
	Period      Period    `json:"period"`
	Limit       int       `json:"limit"`
	Used        int       `json:"used"`
	WindowStart time.Time `json:"window_start"`
}

// Status is the API-facing view of a quota record.
type Status struct {
	Period    Period    `json:"period"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetsAt  time.Time `json:"resets_at"`
	Allowed   bool      `json:"allowed"`
}

// ExceededError is returned when a check-and-increment is denied. It carries
// the status so callers can surface "try again at resets_at".
type ExceededError struct {
	Status Status
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %d/%d requests used this %s, resets at %s",
		e.Status.Used, e.Status.Limit, e.Status.Period, e.Status.ResetsAt.Format(time.RFC3339))
}
