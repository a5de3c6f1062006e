package preferences

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/config"
	"github.com/taskpilot/taskpilot/internal/quota"
)

var (
	ErrValidation       = errors.New("invalid preferences")
	ErrShortcutNotFound = errors.New("shortcut not found")
)

// Service manages per-user assistant settings and keeps the quota limiter in
// sync with the rate-limit override. Reads fall back to Defaults for users
// who never saved anything.
type Service struct {
	repo  Repository
	quota *quota.Service
	cfg   config.AIConfig

	now func() time.Time
}

func NewService(repo Repository, quotaSvc *quota.Service, cfg config.AIConfig) *Service {
	return &Service{
		repo:  repo,
		quota: quotaSvc,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Get returns the user's preferences, materializing defaults in memory when
// none were ever saved. The defaults are not persisted by a read.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	prefs, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		return Defaults(userID), nil
	}
	return prefs, nil
}

// Update applies a partial update and persists the result. Setting
// RateLimitOverride to a positive value replaces the user's daily limit in
// the quota service; setting it to 0 clears the override and restores the
// configured default.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, req *UpdateRequest) (*Preferences, error) {
	if req.PreferredLanguage == nil && req.Tone == nil && req.Proactive == nil &&
		req.AIEnabled == nil && req.RateLimitOverride == nil {
		return nil, fmt.Errorf("%w: no fields to update", ErrValidation)
	}

	prefs, err := s.loadOrDefault(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.PreferredLanguage != nil {
		prefs.PreferredLanguage = strings.ToLower(strings.TrimSpace(*req.PreferredLanguage))
	}
	if req.Tone != nil {
		tone := Tone(strings.ToLower(strings.TrimSpace(*req.Tone)))
		if !tone.Valid() {
			return nil, fmt.Errorf("%w: tone must be one of professional, casual, concise", ErrValidation)
		}
		prefs.Tone = tone
	}
	if req.Proactive != nil {
		prefs.ProactiveSuggestions = *req.Proactive
	}
	if req.AIEnabled != nil {
		prefs.AIEnabled = *req.AIEnabled
	}
	if req.RateLimitOverride != nil {
		if err := s.applyOverride(ctx, prefs, *req.RateLimitOverride); err != nil {
			return nil, err
		}
	}

	prefs.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

func (s *Service) applyOverride(ctx context.Context, prefs *Preferences, override int) error {
	switch {
	case override < 0:
		return fmt.Errorf("%w: rate limit override must not be negative", ErrValidation)
	case override == 0:
		prefs.RateLimitOverride = nil
		if s.quota != nil {
			return s.quota.SetLimitOverride(ctx, prefs.UserID, quota.PeriodDay, s.cfg.DefaultDailyLimit)
		}
	default:
		prefs.RateLimitOverride = &override
		if s.quota != nil {
			return s.quota.SetLimitOverride(ctx, prefs.UserID, quota.PeriodDay, override)
		}
	}
	return nil
}

// Enabled reports whether the assistant is switched on for this user. Repo
// failures count as enabled so a preferences outage cannot take the
// assistant down; the global feature flag is checked by the caller.
func (s *Service) Enabled(ctx context.Context, userID uuid.UUID) bool {
	prefs, err := s.repo.Get(ctx, userID)
	if err != nil {
		slog.Warn("reading preferences for enabled check", "user_id", userID, "error", err)
		return true
	}
	if prefs == nil {
		return true
	}
	return prefs.AIEnabled
}

// SetShortcut teaches or replaces a named shortcut. Names are normalized to
// lowercase; re-teaching keeps the accumulated usage count.
func (s *Service) SetShortcut(ctx context.Context, userID uuid.UUID, name string, req *ShortcutRequest) (*Preferences, error) {
	name = normalizeShortcut(name)
	if name == "" {
		return nil, fmt.Errorf("%w: shortcut name is required", ErrValidation)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: shortcut title is required", ErrValidation)
	}

	prefs, err := s.loadOrDefault(ctx, userID)
	if err != nil {
		return nil, err
	}

	sc := Shortcut{
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		LearnedAt:   s.now(),
	}
	if prev, ok := prefs.Shortcuts[name]; ok {
		sc.UsageCount = prev.UsageCount
	}
	prefs.Shortcuts[name] = sc

	prefs.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

// DeleteShortcut forgets a learned shortcut.
func (s *Service) DeleteShortcut(ctx context.Context, userID uuid.UUID, name string) (*Preferences, error) {
	name = normalizeShortcut(name)

	prefs, err := s.loadOrDefault(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, ok := prefs.Shortcuts[name]; !ok {
		return nil, ErrShortcutNotFound
	}
	delete(prefs.Shortcuts, name)

	prefs.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

var usualRe = regexp.MustCompile(`\busual\s+(\w+(?:\s+\w+)?)`)

// Recognize matches the message against the user's learned shortcuts:
// either "usual <name>" or the bare name preceded by add/create. A hit
// bumps the usage count best-effort and returns the shortcut.
func (s *Service) Recognize(ctx context.Context, userID uuid.UUID, message string) (string, *Shortcut) {
	prefs, err := s.repo.Get(ctx, userID)
	if err != nil {
		slog.Warn("reading preferences for shortcut match", "user_id", userID, "error", err)
		return "", nil
	}
	if prefs == nil || len(prefs.Shortcuts) == 0 {
		return "", nil
	}

	lower := strings.ToLower(message)

	if m := usualRe.FindStringSubmatch(lower); m != nil {
		if sc, ok := prefs.Shortcuts[m[1]]; ok {
			s.touchShortcut(ctx, prefs, m[1])
			return m[1], &sc
		}
	}

	for name, sc := range prefs.Shortcuts {
		if strings.Contains(lower, "add "+name) || strings.Contains(lower, "create "+name) {
			s.touchShortcut(ctx, prefs, name)
			return name, &sc
		}
	}
	return "", nil
}

func (s *Service) touchShortcut(ctx context.Context, prefs *Preferences, name string) {
	sc := prefs.Shortcuts[name]
	sc.UsageCount++
	usedAt := s.now()
	sc.LastUsedAt = &usedAt
	prefs.Shortcuts[name] = sc

	prefs.UpdatedAt = usedAt
	if err := s.repo.Save(ctx, prefs); err != nil {
		slog.Warn("recording shortcut usage", "user_id", prefs.UserID, "shortcut", name, "error", err)
	}
}

func (s *Service) loadOrDefault(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	prefs, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		prefs = Defaults(userID)
		prefs.CreatedAt = s.now()
	}
	if prefs.Shortcuts == nil {
		prefs.Shortcuts = map[string]Shortcut{}
	}
	return prefs, nil
}

func normalizeShortcut(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
