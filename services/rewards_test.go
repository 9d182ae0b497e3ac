package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loro-platform/models"
	"loro-platform/realtime"
)

func TestAwardXP_CreatesRewardsOnFirstAward(t *testing.T) {
	db := newTestDB(t)
	rec := &recorder{}
	svc := NewRewardsService(db, rec)
	u := seedUser(t, db, "42", models.RoleUser, "alice")

	res, err := svc.AwardXP(testCtx, AwardXPInput{
		UserID: u.ID, OrganisationID: "42", Amount: 100,
		Source: XPSource{Type: "task", ID: "t-1"},
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, int64(100), res.Rewards.TotalXP)
	assert.Equal(t, 1, res.Rewards.Level)
	assert.Equal(t, "ROOKIE", res.Rewards.Rank)
	assert.Equal(t, int64(100), res.Rewards.XPBreakdown.Tasks)
	assert.False(t, res.LeveledUp)
	assert.Equal(t, models.XPTasks, res.Transaction.Category)
	assert.Contains(t, rec.names(), realtime.RewardsXPAwarded)

	var n int64
	require.NoError(t, db.Model(&models.UserRewards{}).Where("user_id = ?", u.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestAwardXP_AccumulatesAndLevelsUp(t *testing.T) {
	db := newTestDB(t)
	rec := &recorder{}
	svc := NewRewardsService(db, rec)
	u := seedUser(t, db, "org-1", models.RoleUser, "bob")

	_, err := svc.AwardXP(testCtx, AwardXPInput{UserID: u.ID, OrganisationID: "org-1", Amount: 400, Source: XPSource{Type: "sale"}})
	require.NoError(t, err)
	res, err := svc.AwardXP(testCtx, AwardXPInput{UserID: u.ID, OrganisationID: "org-1", Amount: 450, Source: XPSource{Type: "mystery"}})
	require.NoError(t, err)

	r := res.Rewards
	assert.Equal(t, int64(850), r.TotalXP)
	assert.Equal(t, 2, r.Level)
	assert.Equal(t, int64(350), r.CurrentXP)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 1, res.PreviousLevel)
	assert.NotNil(t, r.LastLevelUpAt)
	assert.Equal(t, int64(400), r.XPBreakdown.Sales)
	assert.Equal(t, int64(450), r.XPBreakdown.Other)
	assert.Equal(t, r.TotalXP, r.XPBreakdown.Sum())
	assert.Contains(t, rec.names(), realtime.RewardsLevelUp)

	var sum int64
	require.NoError(t, db.Model(&models.XPTransaction{}).
		Select("COALESCE(SUM(xp_amount), 0)").
		Where("user_rewards_id = ?", r.ID).Scan(&sum).Error)
	assert.Equal(t, r.TotalXP, sum)
}

func TestAwardXP_InputRules(t *testing.T) {
	db := newTestDB(t)
	svc := NewRewardsService(db, nil)

	res, err := svc.AwardXP(testCtx, AwardXPInput{OrganisationID: "42", Amount: 10})
	assert.NoError(t, err)
	assert.Nil(t, res)

	_, err = svc.AwardXP(testCtx, AwardXPInput{UserID: "u-1", Amount: 10})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "organisationId", verr.Field)

	_, err = svc.AwardXP(testCtx, AwardXPInput{UserID: "u-1", OrganisationID: "42", Amount: 0})
	assert.ErrorIs(t, err, ErrValidation)

	var n int64
	require.NoError(t, db.Model(&models.XPTransaction{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestAwardXP_UnlocksAchievementsOnce(t *testing.T) {
	db := newTestDB(t)
	svc := NewRewardsService(db, nil)
	u := seedUser(t, db, "org-1", models.RoleUser, "carol")

	res, err := svc.AwardXP(testCtx, AwardXPInput{UserID: u.ID, OrganisationID: "org-1", Amount: 10, Source: XPSource{Type: "task"}})
	require.NoError(t, err)
	require.Len(t, res.Unlocked, 1)
	assert.Equal(t, "FIRST_STEPS", res.Unlocked[0].Code)

	res, err = svc.AwardXP(testCtx, AwardXPInput{UserID: u.ID, OrganisationID: "org-1", Amount: 10, Source: XPSource{Type: "task"}})
	require.NoError(t, err)
	assert.Empty(t, res.Unlocked)

	views, err := svc.Achievements(testCtx, u.ID)
	require.NoError(t, err)
	require.Len(t, views, len(AchievementCatalogue))
	assert.True(t, views[0].Unlocked)
	assert.False(t, views[1].Unlocked)
}

func TestLeaderboard_OrderAndScope(t *testing.T) {
	db := newTestDB(t)
	svc := NewRewardsService(db, nil)

	amounts := []int64{300, 1200, 50, 700}
	for i, amt := range amounts {
		u := seedUser(t, db, "org-1", models.RoleUser, "user"+string(rune('a'+i)))
		_, err := svc.AwardXP(testCtx, AwardXPInput{UserID: u.ID, OrganisationID: "org-1", Amount: amt, Source: XPSource{Type: "lead"}})
		require.NoError(t, err)
	}
	other := seedUser(t, db, "org-2", models.RoleUser, "outsider")
	_, err := svc.AwardXP(testCtx, AwardXPInput{UserID: other.ID, OrganisationID: "org-2", Amount: 99999, Source: XPSource{Type: "lead"}})
	require.NoError(t, err)

	board, err := svc.Leaderboard(testCtx, "org-1", nil)
	require.NoError(t, err)
	require.Len(t, board, 4)

	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].TotalXP, board[i].TotalXP)
		assert.Equal(t, i+1, board[i].Position)
	}
	assert.Equal(t, int64(1200), board[0].TotalXP)
	assert.Equal(t, int64(1200), board[0].XPThisMonth)
	assert.Equal(t, 1, board[0].Streak)
	require.NotNil(t, board[0].User)
	assert.NotEmpty(t, board[0].User.Name)
}

func TestLeaderboard_BranchFilterAndLimit(t *testing.T) {
	db := newTestDB(t)
	svc := NewRewardsService(db, nil)
	branch := "branch-a"

	for i := 0; i < 12; i++ {
		u := seedUser(t, db, "org-1", models.RoleUser, "member"+string(rune('a'+i)))
		in := AwardXPInput{UserID: u.ID, OrganisationID: "org-1", Amount: int64(10 * (i + 1)), Source: XPSource{Type: "task"}}
		if i%2 == 0 {
			in.BranchID = &branch
		}
		_, err := svc.AwardXP(testCtx, in)
		require.NoError(t, err)
	}

	all, err := svc.Leaderboard(testCtx, "org-1", nil)
	require.NoError(t, err)
	assert.Len(t, all, LeaderboardSize)

	scoped, err := svc.Leaderboard(testCtx, "org-1", &branch)
	require.NoError(t, err)
	assert.Len(t, scoped, 6)

	_, err = svc.Leaderboard(testCtx, "", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRecordLogin_OncePerDay(t *testing.T) {
	db := newTestDB(t)
	svc := NewRewardsService(db, nil)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }
	u := seedUser(t, db, "org-1", models.RoleUser, "dave")

	ok, err := svc.RecordLogin(testCtx, u)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(3 * time.Hour)
	ok, err = svc.RecordLogin(testCtx, u)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(24 * time.Hour)
	ok, err = svc.RecordLogin(testCtx, u)
	require.NoError(t, err)
	assert.True(t, ok)

	view, err := svc.GetUserRewards(testCtx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2*LoginXP, view.XPBreakdown.Login)
}

func TestXPHistory_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	svc := NewRewardsService(db, nil)
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	u := seedUser(t, db, "org-1", models.RoleUser, "erin")

	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		svc.Now = func() time.Time { return at }
		_, err := svc.AwardXP(testCtx, AwardXPInput{UserID: u.ID, OrganisationID: "org-1", Amount: int64(i + 1), Source: XPSource{Type: "task"}})
		require.NoError(t, err)
	}

	txns, total, err := svc.XPHistory(testCtx, u.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, txns, 2)
	assert.Equal(t, int64(3), txns[0].XPAmount)

	_, err = svc.GetUserRewards(testCtx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConsistencyStreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	day := func(offset int) time.Time { return now.AddDate(0, 0, -offset) }

	assert.Equal(t, 0, ConsistencyStreak(nil, now, 30))
	assert.Equal(t, 3, ConsistencyStreak([]time.Time{day(0), day(1), day(2), day(4)}, now, 30))
	assert.Equal(t, 2, ConsistencyStreak([]time.Time{day(1), day(2)}, now, 30), "counts from yesterday when today is empty")
	assert.Equal(t, 0, ConsistencyStreak([]time.Time{day(2)}, now, 30))

	var many []time.Time
	for i := 0; i < 45; i++ {
		many = append(many, day(i))
	}
	assert.Equal(t, 30, ConsistencyStreak(many, now, 30))
}

func TestAwardXP_RejectsUserOutsideOrganisation(t *testing.T) {
	db := newTestDB(t)
	svc := NewRewardsService(db, nil)
	outsider := seedUser(t, db, "org-2", models.RoleUser, "mallory")

	res, err := svc.AwardXP(testCtx, AwardXPInput{UserID: outsider.ID, OrganisationID: "org-1", Amount: 500, Source: XPSource{Type: "sale"}})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, res)

	_, err = svc.AwardXP(testCtx, AwardXPInput{UserID: "no-such-user", OrganisationID: "org-1", Amount: 500, Source: XPSource{Type: "sale"}})
	assert.ErrorIs(t, err, ErrNotFound)

	var n int64
	require.NoError(t, db.Model(&models.UserRewards{}).Count(&n).Error)
	assert.Zero(t, n)

	board, err := svc.Leaderboard(testCtx, "org-1", nil)
	require.NoError(t, err)
	assert.Empty(t, board)
}

func TestAwardXP_RejectsRewardsOwnedByAnotherOrganisation(t *testing.T) {
	db := newTestDB(t)
	svc := NewRewardsService(db, nil)
	u := seedUser(t, db, "org-1", models.RoleUser, "nomad")

	_, err := svc.AwardXP(testCtx, AwardXPInput{UserID: u.ID, OrganisationID: "org-1", Amount: 100, Source: XPSource{Type: "task"}})
	require.NoError(t, err)

	// user moved to org-2 by identity sync; the old ledger stays with org-1
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", u.ID).UpdateColumn("organisation_id", "org-2").Error)

	_, err = svc.AwardXP(testCtx, AwardXPInput{UserID: u.ID, OrganisationID: "org-2", Amount: 100, Source: XPSource{Type: "task"}})
	assert.ErrorIs(t, err, ErrForbidden)

	view, err := svc.GetUserRewards(testCtx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), view.TotalXP)
}

func TestLeaderboard_TieBreaksOnMostRecentUpdate(t *testing.T) {
	db := newTestDB(t)
	svc := NewRewardsService(db, nil)

	first := seedUser(t, db, "org-1", models.RoleUser, "early")
	second := seedUser(t, db, "org-1", models.RoleUser, "late")
	for _, u := range []*models.User{first, second} {
		_, err := svc.AwardXP(testCtx, AwardXPInput{UserID: u.ID, OrganisationID: "org-1", Amount: 500, Source: XPSource{Type: "lead"}})
		require.NoError(t, err)
	}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model(&models.UserRewards{}).Where("user_id = ?", first.ID).UpdateColumn("updated_at", base.Add(time.Hour)).Error)
	require.NoError(t, db.Model(&models.UserRewards{}).Where("user_id = ?", second.ID).UpdateColumn("updated_at", base).Error)

	board, err := svc.Leaderboard(testCtx, "org-1", nil)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, first.ID, board[0].UserID)
	assert.Equal(t, second.ID, board[1].UserID)

	require.NoError(t, db.Model(&models.UserRewards{}).Where("user_id = ?", second.ID).UpdateColumn("updated_at", base.Add(2*time.Hour)).Error)
	board, err = svc.Leaderboard(testCtx, "org-1", nil)
	require.NoError(t, err)
	assert.Equal(t, second.ID, board[0].UserID)
}

func TestRecordLogin_StampsInsideAward(t *testing.T) {
	db := newTestDB(t)
	svc := NewRewardsService(db, nil)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }
	u := seedUser(t, db, "org-1", models.RoleUser, "erin")

	// an unrelated award must not consume the daily login grant
	_, err := svc.AwardXP(testCtx, AwardXPInput{UserID: u.ID, OrganisationID: "org-1", Amount: 10, Source: XPSource{Type: "task"}})
	require.NoError(t, err)

	ok, err := svc.RecordLogin(testCtx, u)
	require.NoError(t, err)
	assert.True(t, ok)

	var rewards models.UserRewards
	require.NoError(t, db.Where("user_id = ?", u.ID).First(&rewards).Error)
	require.NotNil(t, rewards.LastLoginXPAt)
	assert.True(t, rewards.LastLoginXPAt.Equal(now))

	ok, err = svc.RecordLogin(testCtx, u)
	require.NoError(t, err)
	assert.False(t, ok)

	var txns int64
	require.NoError(t, db.Model(&models.XPTransaction{}).Where("user_rewards_id = ? AND source_type = ?", rewards.ID, "login").Count(&txns).Error)
	assert.Equal(t, int64(1), txns)
}
