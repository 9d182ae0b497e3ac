package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loro-platform/models"
)

func TestUsers_SearchAndRoles(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, NewRewardsService(db, nil))
	admin := Actor{UserID: "a", Role: models.RoleAdmin, OrganisationID: "org-1"}

	u, err := svc.Create(testCtx, admin, UserInput{ExternalID: "ext-1", Username: "thandi", Name: "Thandi", Surname: "Nkosi", Email: "T@x.test"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)

	_, err = svc.Create(testCtx, admin, UserInput{ExternalID: "ext-1", Username: "dup"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Create(testCtx, admin, UserInput{ExternalID: "ext-2", Username: "boss", Role: "owner"})
	assert.ErrorIs(t, err, ErrForbidden)

	found, total, err := svc.Search(testCtx, admin, "nkos", "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, u.ID, found[0].ID)

	self := Actor{UserID: u.ID, Role: models.RoleUser, OrganisationID: "org-1"}
	edited, err := svc.Update(testCtx, self, u.ID, UserInput{Username: "thandi", Name: "Thandiwe", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "Thandiwe", edited.Name)
	assert.Equal(t, models.RoleUser, edited.Role, "users cannot promote themselves")

	assert.ErrorIs(t, svc.Delete(testCtx, self, u.ID), ErrForbidden)
}

func TestUsers_LoginPingAwardsOncePerDay(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, NewRewardsService(db, nil))
	u := seedUser(t, db, "org-1", models.RoleUser, "pinger")
	actor := Actor{UserID: u.ID, Role: u.Role, OrganisationID: "org-1"}

	awarded, err := svc.LoginPing(testCtx, actor)
	require.NoError(t, err)
	assert.True(t, awarded)

	awarded, err = svc.LoginPing(testCtx, actor)
	require.NoError(t, err)
	assert.False(t, awarded)
}

func TestUsers_UpsertIdentities(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, nil)

	n, err := svc.UpsertIdentities(testCtx, []IdentityRecord{
		{ExternalID: "idp-1", Username: "one", OrganisationID: "org-1", Role: "manager"},
		{ExternalID: "idp-2", Username: "two", OrganisationID: "org-1", Role: "developer"},
		{ExternalID: "", Username: "skipped", OrganisationID: "org-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.UpsertIdentities(testCtx, []IdentityRecord{{ExternalID: "idp-1", Username: "one-renamed", OrganisationID: "org-1"}})
	require.NoError(t, err)

	var users []models.User
	require.NoError(t, db.Order("external_id").Find(&users).Error)
	require.Len(t, users, 2)
	assert.Equal(t, "one-renamed", users[0].Username)
	assert.Equal(t, models.RoleUser, users[1].Role)
}

func TestUsers_UpsertIdentitiesKeepsNewestDuplicate(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, nil)
	older := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	n, err := svc.UpsertIdentities(testCtx, []IdentityRecord{
		{ExternalID: "idp-7", Username: "newest", Email: "newest@example.com", OrganisationID: "org-1", UpdatedAt: older.Add(time.Hour)},
		{ExternalID: "idp-7", Username: "stale", Email: "stale@example.com", OrganisationID: "org-1", UpdatedAt: older},
		{ExternalID: "idp-8", Username: "first", OrganisationID: "org-1"},
		{ExternalID: "idp-8", Username: "second", OrganisationID: "org-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var users []models.User
	require.NoError(t, db.Order("external_id").Find(&users).Error)
	require.Len(t, users, 2)
	assert.Equal(t, "newest", users[0].Username)
	assert.Equal(t, "second", users[1].Username)
}
