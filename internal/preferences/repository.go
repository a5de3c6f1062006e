package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists one preferences row per user. Get returns (nil, nil)
// when the user has never saved preferences.
type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) (*Preferences, error)
	Save(ctx context.Context, prefs *Preferences) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Get(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	query := `
		SELECT user_id, preferred_language, tone, proactive_suggestions, ai_enabled,
		       rate_limit_override, shortcuts, created_at, updated_at
		FROM ai_preferences WHERE user_id = $1`

	p := &Preferences{}
	var shortcuts []byte
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.PreferredLanguage, &p.Tone, &p.ProactiveSuggestions,
		&p.AIEnabled, &p.RateLimitOverride, &shortcuts, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying preferences: %w", err)
	}

	p.Shortcuts = map[string]Shortcut{}
	if len(shortcuts) > 0 {
		if err := json.Unmarshal(shortcuts, &p.Shortcuts); err != nil {
			return nil, fmt.Errorf("unmarshaling shortcuts: %w", err)
		}
	}
	return p, nil
}

func (r *postgresRepository) Save(ctx context.Context, prefs *Preferences) error {
	shortcuts, err := json.Marshal(prefs.Shortcuts)
	if err != nil {
		return fmt.Errorf("marshaling shortcuts: %w", err)
	}

	query := `
		INSERT INTO ai_preferences (user_id, preferred_language, tone, proactive_suggestions,
			ai_enabled, rate_limit_override, shortcuts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			preferred_language = EXCLUDED.preferred_language,
			tone = EXCLUDED.tone,
			proactive_suggestions = EXCLUDED.proactive_suggestions,
			ai_enabled = EXCLUDED.ai_enabled,
			rate_limit_override = EXCLUDED.rate_limit_override,
			shortcuts = EXCLUDED.shortcuts,
			updated_at = EXCLUDED.updated_at`

	_, err = r.pool.Exec(ctx, query,
		prefs.UserID, prefs.PreferredLanguage, prefs.Tone, prefs.ProactiveSuggestions,
		prefs.AIEnabled, prefs.RateLimitOverride, shortcuts, prefs.CreatedAt, prefs.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}
