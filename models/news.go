package models

import "time"

type NewsCategory string

const (
	NewsCategoryNews         NewsCategory = "news"
	NewsCategoryAnnouncement NewsCategory = "announcement"
	NewsCategoryEvent        NewsCategory = "event"
	NewsCategoryUpdate       NewsCategory = "update"
	NewsCategoryOther        NewsCategory = "other"
)

type NewsStatus string

const (
	NewsDraft     NewsStatus = "draft"
	NewsScheduled NewsStatus = "scheduled"
	NewsPublished NewsStatus = "published"
	NewsArchived  NewsStatus = "archived"
)

type News struct {
	Base
	SoftDelete
	Tenant
	Title         string       `gorm:"not null" json:"title"`
	Subtitle      string       `json:"subtitle,omitempty"`
	Content       string       `gorm:"type:text;not null" json:"content"`
	Slug          string       `gorm:"uniqueIndex;not null" json:"slug"`
	CoverImage    string       `gorm:"type:text" json:"coverImage,omitempty"`
	Category      NewsCategory `gorm:"type:varchar(16);not null;default:'news'" json:"category"`
	Status        NewsStatus   `gorm:"type:varchar(16);not null;default:'draft';index" json:"status"`
	PublishAt     *time.Time   `json:"publishAt,omitempty"` // only used if scheduled
	PublishedAt   *time.Time   `json:"publishedAt,omitempty"`
	AuthorID      string       `gorm:"type:uuid;index" json:"authorId"`
	Author        *User        `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}
