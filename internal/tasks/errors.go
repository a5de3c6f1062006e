package tasks

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound covers both an unknown task id and a target that matched
	// nothing.
	ErrNotFound = errors.New("task not found")

	// ErrForbidden means the task exists but belongs to another user.
	ErrForbidden = errors.New("task belongs to another user")

	ErrValidation = errors.New("invalid task data")
)

// AmbiguousError reports a target that matched more than one task. Callers
// must not pick a winner; the candidate titles are surfaced so the user can
// disambiguate.
type AmbiguousError struct {
	Target     string
	Candidates []*Task
}

func (e *AmbiguousError) Error() string {
	titles := make([]string, len(e.Candidates))
	for i, t := range e.Candidates {
		titles[i] = fmt.Sprintf("%q", t.Title)
	}
	return fmt.Sprintf("target %q is ambiguous: matches %s", e.Target, strings.Join(titles, ", "))
}
