package preferences

import (
	"time"

	"github.com/google/uuid"
)

// Tone selects the assistant's reply register.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	ToneConcise      Tone = "concise"
)

func (t Tone) Valid() bool {
	switch t {
	case ToneProfessional, ToneCasual, ToneConcise:
		return true
	}
	return false
}

// Shortcut is a user-taught phrase bound to task parameters, so "add usual
// standup" expands to a full create proposal.
type Shortcut struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	UsageCount  int        `json:"usage_count"`
	LearnedAt   time.Time  `json:"learned_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
}

// Preferences holds the per-user assistant settings. RateLimitOverride, when
// set, replaces the default daily request limit; AIEnabled gates the chat
// turn for this user without touching the global feature flag.
type Preferences struct {
	UserID               uuid.UUID           `json:"user_id"`
	PreferredLanguage    string              `json:"preferred_language"`
	Tone                 Tone                `json:"tone"`
	ProactiveSuggestions bool                `json:"proactive_suggestions"`
	AIEnabled            bool                `json:"ai_enabled"`
	RateLimitOverride    *int                `json:"rate_limit_override,omitempty"`
	Shortcuts            map[string]Shortcut `json:"shortcuts"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// Defaults returns the preferences a user has before ever saving any:
// English, professional tone, everything enabled, default limits.
func Defaults(userID uuid.UUID) *Preferences {
	return &Preferences{
		UserID:               userID,
		PreferredLanguage:    "en",
		Tone:                 ToneProfessional,
		ProactiveSuggestions: true,
		AIEnabled:            true,
		Shortcuts:            map[string]Shortcut{},
	}
}

// UpdateRequest carries a partial preferences update. Nil fields are left
// unchanged. A RateLimitOverride of 0 clears the override and restores the
// default limit.
type UpdateRequest struct {
	PreferredLanguage *string `json:"preferred_language" validate:"omitempty,min=2,max=10"`
	Tone              *string `json:"tone"`
	Proactive         *bool   `json:"proactive_suggestions"`
	AIEnabled         *bool   `json:"ai_enabled"`
	RateLimitOverride *int    `json:"rate_limit_override"`
}

// ShortcutRequest defines or replaces one learned shortcut.
type ShortcutRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
}
