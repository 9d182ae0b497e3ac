package services

import (
	"math"
	"strings"

	"loro-platform/models"
)

// LevelRange is one row of the static level table: a level covers [MinXP, MaxXP].
type LevelRange struct {
	Level int   `json:"level"`
	MinXP int64 `json:"minXP"`
	MaxXP int64 `json:"maxXP"`
}

// Open reports whether this is the last, unbounded level.
func (r LevelRange) Open() bool {
	return r.MaxXP == math.MaxInt64
}

// RankRange maps an inclusive level span to a rank name.
type RankRange struct {
	Name      string `json:"name"`
	LevelLow  int    `json:"levelLow"`
	LevelHigh int    `json:"levelHigh"`
}

// Levels is ordered by MinXP; ranges are contiguous and the last one is open-ended.
var Levels = []LevelRange{
	{1, 0, 499},
	{2, 500, 1199},
	{3, 1200, 2099},
	{4, 2100, 3199},
	{5, 3200, 4499},
	{6, 4500, 5999},
	{7, 6000, 7699},
	{8, 7700, 9599},
	{9, 9600, 11699},
	{10, 11700, 13999},
	{11, 14000, 16499},
	{12, 16500, 19199},
	{13, 19200, 22099},
	{14, 22100, 25199},
	{15, 25200, 28499},
	{16, 28500, 31999},
	{17, 32000, 35699},
	{18, 35700, 39599},
	{19, 39600, 43699},
	{20, 43700, math.MaxInt64},
}

var Ranks = []RankRange{
	{"ROOKIE", 1, 3},
	{"BRONZE", 4, 6},
	{"SILVER", 7, 9},
	{"GOLD", 10, 12},
	{"PLATINUM", 13, 15},
	{"DIAMOND", 16, 18},
	{"LEGEND", 19, math.MaxInt32},
}

// LevelFor classifies a cumulative XP total. Negative totals count as zero.
func LevelFor(totalXP int64) LevelRange {
	if totalXP < 0 {
		totalXP = 0
	}
	for _, l := range Levels {
		if totalXP >= l.MinXP && totalXP <= l.MaxXP {
			return l
		}
	}
	return Levels[len(Levels)-1]
}

// RankFor returns the rank name covering level.
func RankFor(level int) string {
	for _, r := range Ranks {
		if level >= r.LevelLow && level <= r.LevelHigh {
			return r.Name
		}
	}
	return Ranks[0].Name
}

// LevelProgress is how far totalXP sits inside its level, in percent, plus the XP
// at which the next level starts. The open-ended last level reports 100 and its own MinXP.
func LevelProgress(totalXP int64) (percent float64, nextLevelXP int64) {
	l := LevelFor(totalXP)
	if l.Open() {
		return 100, l.MinXP
	}
	span := l.MaxXP - l.MinXP
	percent = float64(totalXP-l.MinXP) / float64(span) * 100
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return math.Round(percent*100) / 100, l.MaxXP + 1
}

var sourceCategories = map[string]models.XPCategory{
	"task":          models.XPTasks,
	"tasks":         models.XPTasks,
	"subtask":       models.XPTasks,
	"lead":          models.XPLeads,
	"leads":         models.XPLeads,
	"sale":          models.XPSales,
	"sales":         models.XPSales,
	"quotation":     models.XPSales,
	"order":         models.XPSales,
	"attendance":    models.XPAttendance,
	"check-in":      models.XPAttendance,
	"check-out":     models.XPAttendance,
	"leave":         models.XPAttendance,
	"collaboration": models.XPCollaboration,
	"comment":       models.XPCollaboration,
	"journal":       models.XPCollaboration,
	"login":         models.XPLogin,
}

// CategoryForSource buckets a free-form source type; anything unknown is "other".
func CategoryForSource(sourceType string) models.XPCategory {
	if c, ok := sourceCategories[strings.ToLower(strings.TrimSpace(sourceType))]; ok {
		return c
	}
	return models.XPOther
}
