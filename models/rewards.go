package models

import (
	"time"

	"gorm.io/datatypes"
)

// XPCategory buckets XP by the kind of activity that earned it.
type XPCategory string

const (
	XPTasks         XPCategory = "tasks"
	XPLeads         XPCategory = "leads"
	XPSales         XPCategory = "sales"
	XPAttendance    XPCategory = "attendance"
	XPCollaboration XPCategory = "collaboration"
	XPLogin         XPCategory = "login"
	XPOther         XPCategory = "other"
)

// XPCategories lists every category in display order.
var XPCategories = []XPCategory{XPTasks, XPLeads, XPSales, XPAttendance, XPCollaboration, XPLogin, XPOther}

// XPBreakdown stores one counter per category as its own column so increments stay a plain UPDATE.
type XPBreakdown struct {
	Tasks         int64 `gorm:"default:0" json:"tasks"`
	Leads         int64 `gorm:"default:0" json:"leads"`
	Sales         int64 `gorm:"default:0" json:"sales"`
	Attendance    int64 `gorm:"default:0" json:"attendance"`
	Collaboration int64 `gorm:"default:0" json:"collaboration"`
	Login         int64 `gorm:"default:0" json:"login"`
	Other         int64 `gorm:"default:0" json:"other"`
}

// Add increments the counter for category; unknown categories land in Other.
func (b *XPBreakdown) Add(category XPCategory, amount int64) {
	switch category {
	case XPTasks:
		b.Tasks += amount
	case XPLeads:
		b.Leads += amount
	case XPSales:
		b.Sales += amount
	case XPAttendance:
		b.Attendance += amount
	case XPCollaboration:
		b.Collaboration += amount
	case XPLogin:
		b.Login += amount
	default:
		b.Other += amount
	}
}

// Get returns the counter for category.
func (b XPBreakdown) Get(category XPCategory) int64 {
	switch category {
	case XPTasks:
		return b.Tasks
	case XPLeads:
		return b.Leads
	case XPSales:
		return b.Sales
	case XPAttendance:
		return b.Attendance
	case XPCollaboration:
		return b.Collaboration
	case XPLogin:
		return b.Login
	default:
		return b.Other
	}
}

// Sum totals every category.
func (b XPBreakdown) Sum() int64 {
	return b.Tasks + b.Leads + b.Sales + b.Attendance + b.Collaboration + b.Login + b.Other
}

// UserRewards tracks a user's gamified progression. One row per user, created on the
// first award and only ever incremented afterwards.
type UserRewards struct {
	Base
	Tenant
	UserID        string      `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	User          *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TotalXP       int64       `gorm:"default:0;index" json:"totalXP"`
	CurrentXP     int64       `gorm:"default:0" json:"currentXP"` // XP earned inside the current level
	Level         int         `gorm:"default:1" json:"level"`
	Rank          string      `gorm:"type:varchar(16);default:'ROOKIE'" json:"rank"`
	XPBreakdown   XPBreakdown `gorm:"embedded;embeddedPrefix:xp_" json:"xpBreakdown"`
	LastLevelUpAt *time.Time  `json:"lastLevelUpAt,omitempty"`
	LastLoginXPAt *time.Time  `json:"-"`

	Transactions []XPTransaction `gorm:"foreignKey:UserRewardsID" json:"-"`
}

// XPTransaction is one append-only entry in a user's XP ledger.
type XPTransaction struct {
	Base
	UserRewardsID string            `gorm:"type:uuid;index;not null" json:"userRewardsId"`
	XPAmount      int64             `gorm:"not null" json:"xpAmount"`
	SourceType    string            `gorm:"type:varchar(32);not null" json:"sourceType"`
	SourceID      string            `gorm:"type:varchar(64)" json:"sourceId,omitempty"`
	Category      XPCategory        `gorm:"type:varchar(16);not null" json:"category"`
	Details       datatypes.JSONMap `json:"details,omitempty"`
	Timestamp     time.Time         `gorm:"column:awarded_at;index;not null" json:"timestamp"`
}

// UserAchievement records one unlocked achievement for a user.
type UserAchievement struct {
	Base
	UserID          string    `gorm:"type:uuid;uniqueIndex:idx_user_achievement;not null" json:"userId"`
	AchievementCode string    `gorm:"type:varchar(32);uniqueIndex:idx_user_achievement;not null" json:"achievementCode"`
	UnlockedAt      time.Time `gorm:"not null" json:"unlockedAt"`
}
