package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm/clause"

	"loro-platform/models"
)

// Achievement is a static milestone unlocked by XP progress.
type Achievement struct {
	Code        string            `json:"code"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Threshold   map[string]int64  `json:"-"`
	Category    models.XPCategory `json:"category,omitempty"`
}

// AchievementView is an achievement as seen by one user.
type AchievementView struct {
	Achievement
	Unlocked   bool    `json:"unlocked"`
	UnlockedAt *string `json:"unlockedAt,omitempty"`
}

// Achievements catalogue. Threshold keys: total_xp, level, or an XP category name.
var AchievementCatalogue = []Achievement{
	{Code: "FIRST_STEPS", Name: "First Steps", Description: "Earn your first XP", Threshold: map[string]int64{"total_xp": 1}},
	{Code: "LEVEL_5", Name: "Rising Star", Description: "Reach level 5", Threshold: map[string]int64{"level": 5}},
	{Code: "LEVEL_10", Name: "Veteran", Description: "Reach level 10", Threshold: map[string]int64{"level": 10}},
	{Code: "CLOSER", Name: "Closer", Description: "Earn 1000 XP from sales", Threshold: map[string]int64{"sales": 1000}, Category: models.XPSales},
	{Code: "TASK_MASTER", Name: "Task Master", Description: "Earn 1000 XP from tasks", Threshold: map[string]int64{"tasks": 1000}, Category: models.XPTasks},
	{Code: "TEAM_PLAYER", Name: "Team Player", Description: "Earn 500 XP from collaboration", Threshold: map[string]int64{"collaboration": 500}, Category: models.XPCollaboration},
	{Code: "REGULAR", Name: "Regular", Description: "Earn 100 XP from daily logins", Threshold: map[string]int64{"login": 100}, Category: models.XPLogin},
}

func meetsThreshold(r *models.UserRewards, req map[string]int64) bool {
	for key, required := range req {
		switch key {
		case "total_xp":
			if r.TotalXP < required {
				return false
			}
		case "level":
			if int64(r.Level) < required {
				return false
			}
		default:
			if r.XPBreakdown.Get(models.XPCategory(key)) < required {
				return false
			}
		}
	}
	return true
}

// unlockAchievements inserts any newly met achievements and returns them.
func (s *RewardsService) unlockAchievements(ctx context.Context, r *models.UserRewards) ([]Achievement, error) {
	var have []string
	if err := s.DB.WithContext(ctx).Model(&models.UserAchievement{}).
		Where("user_id = ?", r.UserID).
		Pluck("achievement_code", &have).Error; err != nil {
		return nil, fmt.Errorf("load achievements: %w", err)
	}
	owned := make(map[string]bool, len(have))
	for _, c := range have {
		owned[c] = true
	}

	var unlocked []Achievement
	for _, a := range AchievementCatalogue {
		if owned[a.Code] || !meetsThreshold(r, a.Threshold) {
			continue
		}
		row := models.UserAchievement{UserID: r.UserID, AchievementCode: a.Code, UnlockedAt: s.now()}
		res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return unlocked, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		unlocked = append(unlocked, a)
		log.Printf("🎖️ [REWARDS] achievement unlocked: %s → %s", a.Name, r.UserID)
	}
	return unlocked, nil
}

// Achievements lists the full catalogue with the user's unlock state.
func (s *RewardsService) Achievements(ctx context.Context, userID string) ([]AchievementView, error) {
	var rows []models.UserAchievement
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	at := make(map[string]string, len(rows))
	for _, r := range rows {
		at[r.AchievementCode] = r.UnlockedAt.UTC().Format("2006-01-02T15:04:05Z")
	}

	out := make([]AchievementView, 0, len(AchievementCatalogue))
	for _, a := range AchievementCatalogue {
		v := AchievementView{Achievement: a}
		if ts, ok := at[a.Code]; ok {
			v.Unlocked = true
			v.UnlockedAt = &ts
		}
		out = append(out, v)
	}
	return out, nil
}
