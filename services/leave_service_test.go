package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loro-platform/models"
	"loro-platform/realtime"
)

type leaveFixture struct {
	svc     *LeaveService
	rec     *recorder
	owner   Actor
	manager Actor
}

func newLeaveFixture(t *testing.T) leaveFixture {
	t.Helper()
	db := newTestDB(t)
	rec := &recorder{}
	notes := NewNotificationService(db, rec)
	rewards := NewRewardsService(db, rec)
	svc := NewLeaveService(db, notes, rewards, rec)
	svc.Now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }

	o := seedUser(t, db, "org-1", models.RoleUser, "owner")
	m := seedUser(t, db, "org-1", models.RoleManager, "manager")
	return leaveFixture{
		svc:     svc,
		rec:     rec,
		owner:   Actor{UserID: o.ID, Role: o.Role, OrganisationID: "org-1"},
		manager: Actor{UserID: m.ID, Role: m.Role, OrganisationID: "org-1"},
	}
}

func day(d int) time.Time {
	return time.Date(2026, 5, d, 0, 0, 0, 0, time.UTC)
}

func TestLeaveDuration(t *testing.T) {
	d, err := LeaveDuration(day(4), day(8), false)
	require.NoError(t, err)
	assert.Equal(t, 5.0, d)

	d, err = LeaveDuration(day(4), day(4), true)
	require.NoError(t, err)
	assert.Equal(t, 0.5, d)

	_, err = LeaveDuration(day(4), day(5), true)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = LeaveDuration(day(8), day(4), false)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLeave_CreateNotifiesApprovers(t *testing.T) {
	f := newLeaveFixture(t)

	leave, err := f.svc.Create(testCtx, f.owner, LeaveInput{LeaveType: "annual", StartDate: day(10), EndDate: day(12)})
	require.NoError(t, err)
	assert.Equal(t, models.LeavePending, leave.Status)
	assert.Equal(t, 3.0, leave.Duration)

	notes, total, err := f.svc.Notifications.ListForUser(testCtx, f.manager.UserID, true, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, models.NotificationLeave, notes[0].Type)
}

func TestLeave_ApproveAwardsApproverAndNotifiesOwner(t *testing.T) {
	f := newLeaveFixture(t)
	leave, err := f.svc.Create(testCtx, f.owner, LeaveInput{LeaveType: "sick", StartDate: day(10), EndDate: day(10), IsHalfDay: true})
	require.NoError(t, err)

	_, err = f.svc.Approve(testCtx, f.owner, leave.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	approved, err := f.svc.Approve(testCtx, f.manager, leave.ID, "enjoy")
	require.NoError(t, err)
	assert.Equal(t, models.LeaveApproved, approved.Status)
	require.NotNil(t, approved.ApprovedByID)
	assert.Equal(t, f.manager.UserID, *approved.ApprovedByID)
	assert.Contains(t, f.rec.names(), realtime.LeaveStatusChanged)

	rewards, err := f.svc.Rewards.GetUserRewards(testCtx, f.manager.UserID)
	require.NoError(t, err)
	assert.Equal(t, LeaveApprovalXP, rewards.XPBreakdown.Attendance)

	_, total, err := f.svc.Notifications.ListForUser(testCtx, f.owner.UserID, true, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, err = f.svc.Approve(testCtx, f.manager, leave.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLeave_RejectNeedsReason(t *testing.T) {
	f := newLeaveFixture(t)
	leave, err := f.svc.Create(testCtx, f.owner, LeaveInput{LeaveType: "annual", StartDate: day(10), EndDate: day(11)})
	require.NoError(t, err)

	_, err = f.svc.Reject(testCtx, f.manager, leave.ID, "  ")
	assert.ErrorIs(t, err, ErrValidation)

	rejected, err := f.svc.Reject(testCtx, f.manager, leave.ID, "busy season")
	require.NoError(t, err)
	assert.Equal(t, models.LeaveRejected, rejected.Status)
	assert.Equal(t, "busy season", rejected.RejectionReason)
}

func TestLeave_CancelRules(t *testing.T) {
	f := newLeaveFixture(t)
	future, err := f.svc.Create(testCtx, f.owner, LeaveInput{LeaveType: "annual", StartDate: day(10), EndDate: day(11)})
	require.NoError(t, err)
	_, err = f.svc.Approve(testCtx, f.manager, future.ID, "")
	require.NoError(t, err)

	_, err = f.svc.Cancel(testCtx, f.manager, future.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	cancelled, err := f.svc.Cancel(testCtx, f.owner, future.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveCancelled, cancelled.Status)

	started, err := f.svc.Create(testCtx, f.owner, LeaveInput{LeaveType: "annual", StartDate: day(1), EndDate: day(3)})
	require.NoError(t, err)
	_, err = f.svc.Approve(testCtx, f.manager, started.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Cancel(testCtx, f.owner, started.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLeave_UpdateOnlyWhilePending(t *testing.T) {
	f := newLeaveFixture(t)
	leave, err := f.svc.Create(testCtx, f.owner, LeaveInput{LeaveType: "annual", StartDate: day(10), EndDate: day(11)})
	require.NoError(t, err)

	updated, err := f.svc.Update(testCtx, f.owner, leave.ID, LeaveInput{LeaveType: "study", StartDate: day(10), EndDate: day(14)})
	require.NoError(t, err)
	assert.Equal(t, 5.0, updated.Duration)

	_, err = f.svc.Reject(testCtx, f.manager, leave.ID, "no")
	require.NoError(t, err)
	_, err = f.svc.Update(testCtx, f.owner, leave.ID, LeaveInput{LeaveType: "study", StartDate: day(10), EndDate: day(14)})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLeave_DeleteAndRestore(t *testing.T) {
	f := newLeaveFixture(t)
	leave, err := f.svc.Create(testCtx, f.owner, LeaveInput{LeaveType: "annual", StartDate: day(10), EndDate: day(11)})
	require.NoError(t, err)

	_, err = f.svc.Restore(testCtx, f.owner, leave.ID)
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, f.svc.Delete(testCtx, f.owner, leave.ID))
	_, err = f.svc.Get(testCtx, f.owner, leave.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	restored, err := f.svc.Restore(testCtx, f.manager, leave.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.ID, restored.ID)

	list, total, err := f.svc.List(testCtx, f.manager, LeaveFilter{Status: "pending"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)
}
