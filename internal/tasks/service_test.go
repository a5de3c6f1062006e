package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSvc() *Service {
	return NewService(NewMemRepository())
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestSvc()
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Create(ctx, userID, "   ", "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, userID, strings.Repeat("x", 201), "")
	require.ErrorIs(t, err, ErrValidation)

	task, err := svc.Create(ctx, userID, "  Buy milk  ", "2 liters")
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", task.Title, "title is trimmed")
	assert.Equal(t, userID, task.UserID)
	assert.False(t, task.IsCompleted)
}

func TestGet_OwnershipIsForbiddenNotNotFound(t *testing.T) {
	svc := newTestSvc()
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()

	task, err := svc.Create(ctx, owner, "Private", "")
	require.NoError(t, err)

	_, err = svc.Get(ctx, stranger, task.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(ctx, owner, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestComplete_Toggles(t *testing.T) {
	svc := newTestSvc()
	ctx := context.Background()
	userID := uuid.New()

	task, err := svc.Create(ctx, userID, "Toggle me", "")
	require.NoError(t, err)

	done, err := svc.Complete(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.True(t, done.IsCompleted)

	undone, err := svc.Complete(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.False(t, undone.IsCompleted)
}

func TestUpdate_PartialFields(t *testing.T) {
	svc := newTestSvc()
	ctx := context.Background()
	userID := uuid.New()

	task, err := svc.Create(ctx, userID, "Old title", "old desc")
	require.NoError(t, err)

	newTitle := "New title"
	updated, err := svc.Update(ctx, userID, task.ID, &UpdateTaskRequest{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, "old desc", updated.Description, "untouched fields survive")

	empty := "  "
	_, err = svc.Update(ctx, userID, task.ID, &UpdateTaskRequest{Title: &empty})
	require.ErrorIs(t, err, ErrValidation)
}

func TestDelete_RemovesOnlyOwnTask(t *testing.T) {
	svc := newTestSvc()
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()

	task, err := svc.Create(ctx, owner, "Doomed", "")
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, stranger, task.ID), ErrForbidden)

	require.NoError(t, svc.Delete(ctx, owner, task.ID))
	_, err = svc.Get(ctx, owner, task.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestQuery_Filters(t *testing.T) {
	svc := newTestSvc()
	ctx := context.Background()
	userID := uuid.New()

	groceries, err := svc.Create(ctx, userID, "Buy groceries", "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, userID, "Write report", "")
	require.NoError(t, err)
	_, err = svc.Complete(ctx, userID, groceries.ID)
	require.NoError(t, err)

	completed, err := svc.Query(ctx, userID, Filter{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "Buy groceries", completed[0].Title)

	pending, err := svc.Query(ctx, userID, Filter{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Write report", pending[0].Title)

	byTitle, err := svc.Query(ctx, userID, Filter{TitleContains: "report"})
	require.NoError(t, err)
	require.Len(t, byTitle, 1)

	_, err = svc.Query(ctx, userID, Filter{Status: "bogus"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestQuery_NeverSeesOtherUsers(t *testing.T) {
	svc := newTestSvc()
	ctx := context.Background()
	userA := uuid.New()
	userB := uuid.New()

	_, err := svc.Create(ctx, userA, "A's task", "")
	require.NoError(t, err)

	list, err := svc.Query(ctx, userB, Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestResolve_ByID(t *testing.T) {
	svc := newTestSvc()
	ctx := context.Background()
	userID := uuid.New()

	task, err := svc.Create(ctx, userID, "Addressable", "")
	require.NoError(t, err)

	got, err := svc.Resolve(ctx, userID, task.ID.String())
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
}

func TestResolve_ByKeywordSingleMatch(t *testing.T) {
	svc := newTestSvc()
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Create(ctx, userID, "Buy milk", "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, userID, "Write report", "")
	require.NoError(t, err)

	got, err := svc.Resolve(ctx, userID, "milk")
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)
}

func TestResolve_Ambiguous(t *testing.T) {
	svc := newTestSvc()
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Create(ctx, userID, "Buy milk", "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, userID, "Buy bread", "")
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, userID, "buy")
	var ambiguous *AmbiguousError
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Candidates, 2)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestResolve_NoMatchAndCrossUser(t *testing.T) {
	svc := newTestSvc()
	ctx := context.Background()
	userA := uuid.New()
	userB := uuid.New()

	task, err := svc.Create(ctx, userA, "Secret plan", "")
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, userB, "secret")
	require.ErrorIs(t, err, ErrNotFound, "keyword search never crosses users")

	_, err = svc.Resolve(ctx, userB, task.ID.String())
	require.ErrorIs(t, err, ErrForbidden, "direct id hit on a foreign task is forbidden")

	_, err = svc.Resolve(ctx, userA, "")
	require.ErrorIs(t, err, ErrValidation)

	var ambiguous *AmbiguousError
	assert.False(t, errors.As(err, &ambiguous))
}
