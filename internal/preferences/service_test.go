package preferences

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/internal/config"
	"github.com/taskpilot/taskpilot/internal/quota"
)

func testAIConfig() config.AIConfig {
	return config.AIConfig{
		Enabled:            true,
		DefaultDailyLimit:  15,
		DefaultHourlyLimit: 5,
		InterpretTimeout:   time.Second,
	}
}

func newFixture(t *testing.T) (*Service, *quota.Service) {
	t.Helper()
	cfg := testAIConfig()
	quotaSvc := quota.NewService(quota.NewMemStore(), cfg)
	return NewService(NewMemRepository(), quotaSvc, cfg), quotaSvc
}

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }
func intptr(n int) *int       { return &n }

func TestGet_DefaultsForUnknownUser(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	prefs, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "en", prefs.PreferredLanguage)
	assert.Equal(t, ToneProfessional, prefs.Tone)
	assert.True(t, prefs.AIEnabled)
	assert.True(t, prefs.ProactiveSuggestions)
	assert.Nil(t, prefs.RateLimitOverride)
	assert.Empty(t, prefs.Shortcuts)
}

func TestUpdate_PartialKeepsOtherFields(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Update(ctx, userID, &UpdateRequest{
		PreferredLanguage: strptr("PT"),
		Tone:              strptr("casual"),
	})
	require.NoError(t, err)

	// A later update of one field leaves the rest alone.
	_, err = svc.Update(ctx, userID, &UpdateRequest{Proactive: boolptr(false)})
	require.NoError(t, err)

	prefs, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "pt", prefs.PreferredLanguage, "language is normalized to lowercase")
	assert.Equal(t, ToneCasual, prefs.Tone)
	assert.False(t, prefs.ProactiveSuggestions)
	assert.True(t, prefs.AIEnabled)
}

func TestUpdate_RejectsInvalidTone(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, uuid.New(), &UpdateRequest{Tone: strptr("sarcastic")})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdate_RejectsEmptyRequest(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, uuid.New(), &UpdateRequest{})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdate_RateLimitOverrideFlowsIntoQuota(t *testing.T) {
	svc, quotaSvc := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Update(ctx, userID, &UpdateRequest{RateLimitOverride: intptr(50)})
	require.NoError(t, err)

	st, err := quotaSvc.CheckLimit(ctx, userID, quota.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, 50, st.Limit)

	prefs, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, prefs.RateLimitOverride)
	assert.Equal(t, 50, *prefs.RateLimitOverride)

	// Zero clears the override and restores the configured default.
	_, err = svc.Update(ctx, userID, &UpdateRequest{RateLimitOverride: intptr(0)})
	require.NoError(t, err)

	st, err = quotaSvc.CheckLimit(ctx, userID, quota.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, 15, st.Limit)

	prefs, err = svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, prefs.RateLimitOverride)
}

func TestUpdate_RejectsNegativeOverride(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, uuid.New(), &UpdateRequest{RateLimitOverride: intptr(-1)})
	require.ErrorIs(t, err, ErrValidation)
}

func TestShortcuts_TeachRecognizeForget(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.SetShortcut(ctx, userID, "Standup", &ShortcutRequest{
		Title:       "Daily standup",
		Description: "Post status",
	})
	require.NoError(t, err)

	name, sc := svc.Recognize(ctx, userID, "add usual standup please")
	require.NotNil(t, sc, "name is normalized, so Standup matches standup")
	assert.Equal(t, "standup", name)
	assert.Equal(t, "Daily standup", sc.Title)

	name, sc = svc.Recognize(ctx, userID, "create standup for tomorrow")
	require.NotNil(t, sc)
	assert.Equal(t, "standup", name)

	_, sc = svc.Recognize(ctx, userID, "what is a standup")
	assert.Nil(t, sc, "bare mention without add/create/usual is not a match")

	prefs, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	got := prefs.Shortcuts["standup"]
	assert.Equal(t, 2, got.UsageCount)
	assert.NotNil(t, got.LastUsedAt)

	// Re-teaching replaces the parameters but keeps the usage history.
	_, err = svc.SetShortcut(ctx, userID, "standup", &ShortcutRequest{Title: "Async standup"})
	require.NoError(t, err)
	prefs, err = svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Async standup", prefs.Shortcuts["standup"].Title)
	assert.Equal(t, 2, prefs.Shortcuts["standup"].UsageCount)

	_, err = svc.DeleteShortcut(ctx, userID, "standup")
	require.NoError(t, err)
	_, sc = svc.Recognize(ctx, userID, "add usual standup")
	assert.Nil(t, sc)

	_, err = svc.DeleteShortcut(ctx, userID, "standup")
	require.ErrorIs(t, err, ErrShortcutNotFound)
}

func TestShortcuts_IsolatedPerUser(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()

	_, err := svc.SetShortcut(ctx, owner, "review", &ShortcutRequest{Title: "Code review"})
	require.NoError(t, err)

	_, sc := svc.Recognize(ctx, other, "add usual review")
	assert.Nil(t, sc)
}

func TestEnabled_DefaultsTrueAndFollowsUpdates(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	assert.True(t, svc.Enabled(ctx, userID))

	_, err := svc.Update(ctx, userID, &UpdateRequest{AIEnabled: boolptr(false)})
	require.NoError(t, err)
	assert.False(t, svc.Enabled(ctx, userID))

	_, err = svc.Update(ctx, userID, &UpdateRequest{AIEnabled: boolptr(true)})
	require.NoError(t, err)
	assert.True(t, svc.Enabled(ctx, userID))
}
