package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loro-platform/models"
	"loro-platform/realtime"
)

func TestTipFor_Deterministic(t *testing.T) {
	d := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, TipFor("user-1", d), TipFor("user-1", d.Add(3*time.Hour)))
}

func TestSalesTipBroadcast_Batches(t *testing.T) {
	db := newTestDB(t)
	rec := &recorder{}
	for i := 0; i < 7; i++ {
		seedUser(t, db, "org-1", models.RoleUser, fmt.Sprintf("rep%d", i))
	}
	inactive := seedUser(t, db, "org-1", models.RoleUser, "gone")
	require.NoError(t, db.Model(inactive).Update("status", models.UserInactive).Error)

	b := NewSalesTipBroadcaster(db, NewNotificationService(db, rec), 3, 0)
	res, err := b.Run(testCtx)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Sent)
	assert.Equal(t, 3, res.Batches)

	var n int64
	require.NoError(t, db.Model(&models.Notification{}).Where("type = ?", models.NotificationSalesTip).Count(&n).Error)
	assert.Equal(t, int64(7), n)
	assert.Len(t, rec.names(), 7)
	assert.Equal(t, realtime.NotificationNew, rec.names()[0])
}

func TestSalesTipBroadcast_HonoursCancellation(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 4; i++ {
		seedUser(t, db, "org-1", models.RoleUser, fmt.Sprintf("rep%d", i))
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := NewSalesTipBroadcaster(db, NewNotificationService(db, nil), 2, time.Hour)

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	res, err := b.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, res.Sent)
}

func TestNotifications_ReadFlow(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db, nil)
	u := seedUser(t, db, "org-1", models.RoleUser, "reader")

	first, err := svc.Notify(testCtx, NotificationInput{UserID: u.ID, OrganisationID: "org-1", Type: models.NotificationGeneral, Title: "a", Message: "a"})
	require.NoError(t, err)
	_, err = svc.Notify(testCtx, NotificationInput{UserID: u.ID, OrganisationID: "org-1", Type: models.NotificationGeneral, Title: "b", Message: "b"})
	require.NoError(t, err)

	read, err := svc.MarkRead(testCtx, u.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationRead, read.Status)

	_, err = svc.MarkRead(testCtx, "someone-else", first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, unread, err := svc.ListForUser(testCtx, u.ID, true, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	n, err := svc.MarkAllRead(testCtx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	since, err := svc.Since(testCtx, u.ID, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	assert.Len(t, since, 2)
}
