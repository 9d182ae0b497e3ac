package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loro-platform/models"
	"loro-platform/realtime"
)

func TestNews_SlugsAreUnique(t *testing.T) {
	db := newTestDB(t)
	svc := NewNewsService(db, nil)
	editor := Actor{UserID: "ed", Role: models.RoleManager, OrganisationID: "org-1"}

	a, err := svc.Create(testCtx, editor, NewsInput{Title: "Quarterly Results!", Content: "..."})
	require.NoError(t, err)
	b, err := svc.Create(testCtx, editor, NewsInput{Title: "Quarterly results", Content: "..."})
	require.NoError(t, err)

	assert.Equal(t, "quarterly-results", a.Slug)
	assert.Equal(t, "quarterly-results-2", b.Slug)
	assert.Equal(t, models.NewsDraft, a.Status)

	got, err := svc.Get(testCtx, editor, "quarterly-results-2")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestNews_ScheduledPublishing(t *testing.T) {
	db := newTestDB(t)
	rec := &recorder{}
	svc := NewNewsService(db, rec)
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }
	editor := Actor{UserID: "ed", Role: models.RoleManager, OrganisationID: "org-1"}

	past := now.Add(-time.Minute)
	_, err := svc.Create(testCtx, editor, NewsInput{Title: "Late", Content: "x", Status: "scheduled", PublishAt: &past})
	assert.ErrorIs(t, err, ErrValidation)

	at := now.Add(30 * time.Minute)
	n, err := svc.Create(testCtx, editor, NewsInput{Title: "Launch", Content: "x", Status: "scheduled", PublishAt: &at})
	require.NoError(t, err)

	published, _, err := svc.ListPublished(testCtx, editor, "", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, published)

	count, err := svc.PublishDue(testCtx)
	require.NoError(t, err)
	assert.Zero(t, count)

	now = now.Add(time.Hour)
	count, err = svc.PublishDue(testCtx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, rec.names(), realtime.NewsPublished)

	published, total, err := svc.ListPublished(testCtx, editor, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, n.ID, published[0].ID)
	assert.Nil(t, published[0].PublishAt)
}

func TestNews_DeleteRestore(t *testing.T) {
	db := newTestDB(t)
	svc := NewNewsService(db, nil)
	editor := Actor{UserID: "ed", Role: models.RoleAdmin, OrganisationID: "org-1"}

	n, err := svc.Create(testCtx, editor, NewsInput{Title: "Hello", Content: "x", Status: "published"})
	require.NoError(t, err)
	require.NotNil(t, n.PublishedAt)

	require.NoError(t, svc.Delete(testCtx, editor, n.ID))
	_, err = svc.Get(testCtx, editor, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	again, err := svc.Create(testCtx, editor, NewsInput{Title: "Hello", Content: "y"})
	require.NoError(t, err)
	assert.Equal(t, "hello-2", again.Slug)

	_, err = svc.Restore(testCtx, editor, n.ID)
	require.NoError(t, err)
}
