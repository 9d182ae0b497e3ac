package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"loro-platform/metrics"
	"loro-platform/models"
	"loro-platform/realtime"
)

const (
	// LeaderboardSize is how many users a leaderboard returns.
	LeaderboardSize = 10
	// StreakWindowDays bounds the consistency streak.
	StreakWindowDays = 30

	leaderboardFanOut = 4
)

// XP granted by other modules as a side effect of their own operations.
const (
	LoginXP            int64 = 5
	LeaveApprovalXP    int64 = 10
	QuotationCreatedXP int64 = 20
	QuotationWonXP     int64 = 50
)

type RewardsService struct {
	DB        *gorm.DB
	Publisher realtime.Publisher
	Now       func() time.Time
}

func NewRewardsService(db *gorm.DB, pub realtime.Publisher) *RewardsService {
	if pub == nil {
		pub = realtime.NopPublisher{}
	}
	return &RewardsService{DB: db, Publisher: pub, Now: func() time.Time { return time.Now().UTC() }}
}

func (s *RewardsService) now() time.Time {
	return s.Now().UTC()
}

// XPSource describes what earned the XP.
type XPSource struct {
	Type    string                 `json:"type"`
	ID      string                 `json:"id"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type AwardXPInput struct {
	UserID         string
	OrganisationID string
	BranchID       *string
	Amount         int64
	Source         XPSource
}

type AwardXPResult struct {
	Rewards       *models.UserRewards   `json:"rewards"`
	Transaction   *models.XPTransaction `json:"transaction"`
	PreviousLevel int                   `json:"previousLevel"`
	LeveledUp     bool                  `json:"leveledUp"`
	Unlocked      []Achievement         `json:"unlocked,omitempty"`
}

// AwardXP appends an XP transaction for the user and folds it into their totals, creating
// the UserRewards row on first use. A missing user id is a silent no-op (nil, nil).
func (s *RewardsService) AwardXP(ctx context.Context, in AwardXPInput) (*AwardXPResult, error) {
	return s.award(ctx, in, false)
}

var errLoginAlreadyAwarded = errors.New("login xp already awarded today")

// award does the work of AwardXP. With dailyLogin set the once-per-day check and the
// last_login_xp_at stamp happen on the locked rewards row, inside the same transaction.
func (s *RewardsService) award(ctx context.Context, in AwardXPInput, dailyLogin bool) (*AwardXPResult, error) {
	if strings.TrimSpace(in.UserID) == "" {
		log.Debugf("[REWARDS] skipping XP award without user id (source=%s)", in.Source.Type)
		return nil, nil
	}
	if strings.TrimSpace(in.OrganisationID) == "" {
		return nil, invalid("organisationId", "is required")
	}
	if in.Amount <= 0 {
		return nil, invalid("amount", "must be greater than 0")
	}

	category := CategoryForSource(in.Source.Type)
	sourceType := strings.ToLower(strings.TrimSpace(in.Source.Type))
	if sourceType == "" {
		sourceType = string(models.XPOther)
	}
	now := s.now()

	var (
		rewards models.UserRewards
		txn     models.XPTransaction
		prev    int
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.User
		err := tx.Select("id", "branch_id").
			Where("id = ? AND organisation_id = ?", in.UserID, in.OrganisationID).
			First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("user")
		} else if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if in.BranchID == nil {
			in.BranchID = member.BranchID
		}

		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", in.UserID).
			First(&rewards).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			rewards = models.UserRewards{
				Tenant: models.Tenant{OrganisationID: in.OrganisationID, BranchID: in.BranchID},
				UserID: in.UserID,
				Level:  1,
				Rank:   RankFor(1),
			}
			if err := tx.Create(&rewards).Error; err != nil {
				return fmt.Errorf("create user rewards: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("load user rewards: %w", err)
		} else if rewards.OrganisationID != in.OrganisationID {
			return fmt.Errorf("rewards of user %s belong to another organisation: %w", in.UserID, ErrForbidden)
		}

		if dailyLogin {
			if rewards.LastLoginXPAt != nil && sameDay(*rewards.LastLoginXPAt, now) {
				return errLoginAlreadyAwarded
			}
			rewards.LastLoginXPAt = &now
		}

		txn = models.XPTransaction{
			UserRewardsID: rewards.ID,
			XPAmount:      in.Amount,
			SourceType:    sourceType,
			SourceID:      in.Source.ID,
			Category:      category,
			Details:       datatypes.JSONMap(in.Source.Details),
			Timestamp:     now,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return fmt.Errorf("append xp transaction: %w", err)
		}

		prev = rewards.Level
		rewards.TotalXP += in.Amount
		rewards.XPBreakdown.Add(category, in.Amount)

		level := LevelFor(rewards.TotalXP)
		rewards.Level = level.Level
		rewards.CurrentXP = rewards.TotalXP - level.MinXP
		rewards.Rank = RankFor(level.Level)
		if rewards.Level > prev {
			rewards.LastLevelUpAt = &now
		}

		if err := tx.Save(&rewards).Error; err != nil {
			return fmt.Errorf("update user rewards: %w", err)
		}
		return nil
	})
	if errors.Is(err, errLoginAlreadyAwarded) {
		return nil, err
	}
	if err != nil {
		log.WithFields(log.Fields{"user_id": in.UserID, "source": sourceType}).
			Errorf("❌ [REWARDS] XP award failed: %v", err)
		return nil, err
	}

	result := &AwardXPResult{
		Rewards:       &rewards,
		Transaction:   &txn,
		PreviousLevel: prev,
		LeveledUp:     rewards.Level > prev,
	}

	unlocked, err := s.unlockAchievements(ctx, &rewards)
	if err != nil {
		log.Warnf("⚠️ [REWARDS] achievement check failed for %s: %v", in.UserID, err)
	}
	result.Unlocked = unlocked

	metrics.RecordXP(string(category), in.Amount)
	s.Publisher.Publish(realtime.Event{
		Name:           realtime.RewardsXPAwarded,
		OrganisationID: in.OrganisationID,
		UserID:         in.UserID,
		Data:           payload("xp", in.Amount, "totalXP", rewards.TotalXP, "category", category),
	})
	if result.LeveledUp {
		s.Publisher.Publish(realtime.Event{
			Name:           realtime.RewardsLevelUp,
			OrganisationID: in.OrganisationID,
			UserID:         in.UserID,
			Data:           payload("level", rewards.Level, "rank", rewards.Rank, "previousLevel", prev),
		})
	}

	log.Printf("🎮 [REWARDS] XP awarded: %s +%d (%s) → total=%d lvl=%d rank=%s",
		in.UserID, in.Amount, category, rewards.TotalXP, rewards.Level, rewards.Rank)
	return result, nil
}

// AwardBestEffort is for modules that grant XP as a side effect: failures are logged, never returned.
func (s *RewardsService) AwardBestEffort(ctx context.Context, in AwardXPInput) {
	if _, err := s.AwardXP(ctx, in); err != nil {
		log.Warnf("⚠️ [REWARDS] side-effect award (%s/%s) dropped: %v", in.Source.Type, in.Source.ID, err)
	}
}

// RecordLogin grants the daily login XP at most once per calendar day (UTC).
func (s *RewardsService) RecordLogin(ctx context.Context, user *models.User) (bool, error) {
	now := s.now()
	res, err := s.award(ctx, AwardXPInput{
		UserID:         user.ID,
		OrganisationID: user.OrganisationID,
		BranchID:       user.BranchID,
		Amount:         LoginXP,
		Source:         XPSource{Type: "login", ID: now.Format("2006-01-02")},
	}, true)
	if errors.Is(err, errLoginAlreadyAwarded) {
		return false, nil
	}
	if err != nil || res == nil {
		return false, err
	}
	return true, nil
}

// RewardsView is a user's rewards plus derived progress figures.
type RewardsView struct {
	*models.UserRewards
	LevelProgress float64           `json:"levelProgress"`
	NextLevelXP   int64             `json:"nextLevelXP"`
	Achievements  []AchievementView `json:"achievements"`
}

func (s *RewardsService) GetUserRewards(ctx context.Context, userID string) (*RewardsView, error) {
	var r models.UserRewards
	if err := s.DB.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user rewards")
		}
		return nil, err
	}
	achievements, err := s.Achievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	pct, next := LevelProgress(r.TotalXP)
	return &RewardsView{UserRewards: &r, LevelProgress: pct, NextLevelXP: next, Achievements: achievements}, nil
}

// XPHistory pages through a user's transactions, newest first.
func (s *RewardsService) XPHistory(ctx context.Context, userID string, page, limit int) ([]models.XPTransaction, int64, error) {
	var r models.UserRewards
	if err := s.DB.WithContext(ctx).Select("id").Where("user_id = ?", userID).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.XPTransaction{}, 0, nil
		}
		return nil, 0, err
	}

	q := s.DB.WithContext(ctx).Model(&models.XPTransaction{}).Where("user_rewards_id = ?", r.ID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txns []models.XPTransaction
	err := q.Order("awarded_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&txns).Error
	return txns, total, err
}

// LeaderboardUser is the public slice of a user shown on a leaderboard.
type LeaderboardUser struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	PhotoURL *string `json:"photoUrl,omitempty"`
	Role     string  `json:"role,omitempty"`
}

type LeaderboardEntry struct {
	Position      int                `json:"position"`
	UserID        string             `json:"userId"`
	User          *LeaderboardUser   `json:"user,omitempty"`
	TotalXP       int64              `json:"totalXP"`
	Level         int                `json:"level"`
	Rank          string             `json:"rank"`
	LevelProgress float64            `json:"levelProgress"`
	NextLevelXP   int64              `json:"nextLevelXP"`
	XPBreakdown   models.XPBreakdown `json:"xpBreakdown"`
	XPThisMonth   int64              `json:"xpThisMonth"`
	XPLastMonth   int64              `json:"xpLastMonth"`
	Streak        int                `json:"streak"`
}

// Leaderboard returns the top users of an organisation (optionally one branch) by total XP,
// ties broken by the most recently updated. Monthly XP and streaks come from per-row queries.
func (s *RewardsService) Leaderboard(ctx context.Context, organisationID string, branchID *string) ([]LeaderboardEntry, error) {
	if organisationID == "" {
		return nil, invalid("organisationId", "is required")
	}

	q := s.DB.WithContext(ctx).Preload("User").Where("organisation_id = ?", organisationID)
	if branchID != nil && *branchID != "" {
		q = q.Where("branch_id = ?", *branchID)
	}

	var rows []models.UserRewards
	if err := q.Order("total_xp DESC").Order("updated_at DESC").Limit(LeaderboardSize).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(leaderboardFanOut)
	for i := range rows {
		i := i
		r := rows[i]
		pct, next := LevelProgress(r.TotalXP)
		entries[i] = LeaderboardEntry{
			Position:      i + 1,
			UserID:        r.UserID,
			TotalXP:       r.TotalXP,
			Level:         r.Level,
			Rank:          r.Rank,
			LevelProgress: pct,
			NextLevelXP:   next,
			XPBreakdown:   r.XPBreakdown,
		}
		if r.User != nil {
			entries[i].User = &LeaderboardUser{
				ID:       r.User.ID,
				Name:     r.User.FullName(),
				PhotoURL: r.User.PhotoURL,
				Role:     string(r.User.Role),
			}
		}

		g.Go(func() error {
			st, err := s.userStats(gctx, r.ID)
			if err != nil {
				return err
			}
			entries[i].XPThisMonth = st.thisMonth
			entries[i].XPLastMonth = st.lastMonth
			entries[i].Streak = st.streak
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("leaderboard stats: %w", err)
	}
	return entries, nil
}

type userStats struct {
	thisMonth int64
	lastMonth int64
	streak    int
}

func (s *RewardsService) userStats(ctx context.Context, rewardsID string) (userStats, error) {
	now := s.now()
	startThis := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	startLast := startThis.AddDate(0, -1, 0)

	var st userStats
	var err error
	if st.thisMonth, err = s.sumXP(ctx, rewardsID, startThis, startThis.AddDate(0, 1, 0)); err != nil {
		return st, err
	}
	if st.lastMonth, err = s.sumXP(ctx, rewardsID, startLast, startThis); err != nil {
		return st, err
	}

	var stamps []time.Time
	since := startOfDay(now).AddDate(0, 0, -StreakWindowDays)
	if err := s.DB.WithContext(ctx).Model(&models.XPTransaction{}).
		Where("user_rewards_id = ? AND awarded_at >= ?", rewardsID, since).
		Pluck("awarded_at", &stamps).Error; err != nil {
		return st, err
	}
	st.streak = ConsistencyStreak(stamps, now, StreakWindowDays)
	return st, nil
}

func (s *RewardsService) sumXP(ctx context.Context, rewardsID string, from, to time.Time) (int64, error) {
	var total int64
	err := s.DB.WithContext(ctx).Model(&models.XPTransaction{}).
		Select("COALESCE(SUM(xp_amount), 0)").
		Where("user_rewards_id = ? AND awarded_at >= ? AND awarded_at < ?", rewardsID, from, to).
		Scan(&total).Error
	return total, err
}

// ConsistencyStreak counts consecutive days with activity, walking back from today
// (or from yesterday when today has none yet), capped at window days.
func ConsistencyStreak(stamps []time.Time, now time.Time, window int) int {
	days := make(map[string]bool, len(stamps))
	for _, t := range stamps {
		days[t.UTC().Format("2006-01-02")] = true
	}

	day := startOfDay(now)
	if !days[day.Format("2006-01-02")] {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for streak < window && days[day.Format("2006-01-02")] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return startOfDay(a).Equal(startOfDay(b))
}

// payload builds an event body from alternating keys and values.
func payload(kv ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return m
}
