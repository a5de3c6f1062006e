package actions

import (
	"fmt"
	"strings"

	"github.com/taskpilot/taskpilot/internal/tasks"
)

// Params is a tagged union: exactly one variant is set, and it must match
// the action type it travels with. Each variant carries only the fields its
// action needs, so a malformed proposal fails at Propose rather than at
// execution time.
type Params struct {
	Create   *CreateParams `json:"create,omitempty"`
	Update   *UpdateParams `json:"update,omitempty"`
	Delete   *TargetParams `json:"delete,omitempty"`
	Complete *TargetParams `json:"complete,omitempty"`
	Query    *QueryParams  `json:"query,omitempty"`
}

type CreateParams struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// UpdateParams names the task to change plus the new field values. At least
// one field must be present.
type UpdateParams struct {
	Target      string  `json:"target"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// TargetParams references a single task by id or title keyword.
type TargetParams struct {
	Target string `json:"target"`
}

// QueryParams may be empty, meaning "all tasks".
type QueryParams struct {
	Status        string `json:"status,omitempty"`
	TitleContains string `json:"title_contains,omitempty"`
}

func (q QueryParams) Filter() tasks.Filter {
	return tasks.Filter{Status: q.Status, TitleContains: q.TitleContains}
}

func (p Params) variants() int {
	n := 0
	if p.Create != nil {
		n++
	}
	if p.Update != nil {
		n++
	}
	if p.Delete != nil {
		n++
	}
	if p.Complete != nil {
		n++
	}
	if p.Query != nil {
		n++
	}
	return n
}

// ValidateFor checks that the variant matching actionType is set, is the
// only one set, and carries its required fields.
func (p Params) ValidateFor(actionType ActionType) error {
	if p.variants() != 1 {
		return fmt.Errorf("%w: exactly one parameter variant must be set", ErrValidation)
	}

	switch actionType {
	case ActionCreate:
		if p.Create == nil {
			return fmt.Errorf("%w: create action requires create parameters", ErrValidation)
		}
		if strings.TrimSpace(p.Create.Title) == "" {
			return fmt.Errorf("%w: create action requires a title", ErrValidation)
		}
	case ActionUpdate:
		if p.Update == nil {
			return fmt.Errorf("%w: update action requires update parameters", ErrValidation)
		}
		if strings.TrimSpace(p.Update.Target) == "" {
			return fmt.Errorf("%w: update action requires a task reference", ErrValidation)
		}
		if p.Update.Title == nil && p.Update.Description == nil {
			return fmt.Errorf("%w: update action requires at least one field to change", ErrValidation)
		}
	case ActionDelete:
		if p.Delete == nil || strings.TrimSpace(p.Delete.Target) == "" {
			return fmt.Errorf("%w: delete action requires a task reference", ErrValidation)
		}
	case ActionComplete:
		if p.Complete == nil || strings.TrimSpace(p.Complete.Target) == "" {
			return fmt.Errorf("%w: complete action requires a task reference", ErrValidation)
		}
	case ActionQuery:
		if p.Query == nil {
			return fmt.Errorf("%w: query action requires query parameters", ErrValidation)
		}
		if !p.Query.Filter().ValidStatus() {
			return fmt.Errorf("%w: query status must be all, pending or completed", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrValidation, actionType)
	}
	return nil
}
