package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"loro-platform/models"
	"loro-platform/realtime"
)

type NewsService struct {
	DB        *gorm.DB
	Publisher realtime.Publisher
	Now       func() time.Time
}

func NewNewsService(db *gorm.DB, pub realtime.Publisher) *NewsService {
	if pub == nil {
		pub = realtime.NopPublisher{}
	}
	return &NewsService{DB: db, Publisher: pub, Now: func() time.Time { return time.Now().UTC() }}
}

type NewsInput struct {
	Title      string     `json:"title" validate:"required,max=200"`
	Subtitle   string     `json:"subtitle" validate:"max=300"`
	Content    string     `json:"content" validate:"required"`
	CoverImage string     `json:"coverImage" validate:"omitempty,url"`
	Category   string     `json:"category" validate:"omitempty,oneof=news announcement event update other"`
	Status     string     `json:"status" validate:"omitempty,oneof=draft scheduled published archived"`
	PublishAt  *time.Time `json:"publishAt"`
}

// uniqueSlug derives a slug from title, adding -2, -3... until it is free.
// Soft-deleted rows still hold their slug.
func (s *NewsService) uniqueSlug(ctx context.Context, title, exceptID string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "news"
	}
	candidate := base
	for i := 2; ; i++ {
		q := s.DB.WithContext(ctx).Unscoped().Model(&models.News{}).Where("slug = ?", candidate)
		if exceptID != "" {
			q = q.Where("id <> ?", exceptID)
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// applyStatus validates and sets status/publish fields. A scheduled article needs a future PublishAt.
func (s *NewsService) applyStatus(n *models.News, in NewsInput) error {
	status := models.NewsStatus(in.Status)
	if status == "" {
		status = models.NewsDraft
	}
	now := s.Now()
	switch status {
	case models.NewsScheduled:
		if in.PublishAt == nil || !in.PublishAt.After(now) {
			return invalid("publishAt", "scheduled news needs a future publish time")
		}
		at := in.PublishAt.UTC()
		n.PublishAt = &at
	case models.NewsPublished:
		if n.PublishedAt == nil {
			n.PublishedAt = &now
		}
		n.PublishAt = nil
	default:
		n.PublishAt = nil
	}
	n.Status = status
	return nil
}

func (s *NewsService) Create(ctx context.Context, actor Actor, in NewsInput) (*models.News, error) {
	sl, err := s.uniqueSlug(ctx, in.Title, "")
	if err != nil {
		return nil, err
	}
	n := models.News{
		Tenant:     models.Tenant{OrganisationID: actor.OrganisationID, BranchID: actor.BranchID},
		Title:      strings.TrimSpace(in.Title),
		Subtitle:   strings.TrimSpace(in.Subtitle),
		Content:    in.Content,
		Slug:       sl,
		CoverImage: in.CoverImage,
		Category:   models.NewsCategory(in.Category),
		AuthorID:   actor.UserID,
	}
	if n.Category == "" {
		n.Category = models.NewsCategoryNews
	}
	if err := s.applyStatus(&n, in); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, fmt.Errorf("create news: %w", err)
	}
	if n.Status == models.NewsPublished {
		s.announce(&n)
	}
	log.Printf("📰 [NEWS] %s created (%s)", n.Slug, n.Status)
	return &n, nil
}

// ListPublished pages the organisation's published articles, newest first.
func (s *NewsService) ListPublished(ctx context.Context, actor Actor, category string, page, limit int) ([]models.News, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.News{}).
		Where("organisation_id = ? AND status = ?", actor.OrganisationID, models.NewsPublished)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.News
	err := q.Preload("Author").Order("published_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&out).Error
	return out, total, err
}

// ListAll includes drafts and scheduled articles; editors use it.
func (s *NewsService) ListAll(ctx context.Context, actor Actor, status string, page, limit int) ([]models.News, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.News{}).Where("organisation_id = ?", actor.OrganisationID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.News
	err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&out).Error
	return out, total, err
}

// Get accepts an id or a slug.
func (s *NewsService) Get(ctx context.Context, actor Actor, idOrSlug string) (*models.News, error) {
	var n models.News
	err := s.DB.WithContext(ctx).Preload("Author").
		Where("organisation_id = ? AND (id = ? OR slug = ?)", actor.OrganisationID, idOrSlug, idOrSlug).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("news")
	}
	return &n, err
}

func (s *NewsService) Update(ctx context.Context, actor Actor, id string, in NewsInput) (*models.News, error) {
	n, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	wasPublished := n.Status == models.NewsPublished

	if t := strings.TrimSpace(in.Title); t != n.Title {
		sl, err := s.uniqueSlug(ctx, t, n.ID)
		if err != nil {
			return nil, err
		}
		n.Title, n.Slug = t, sl
	}
	n.Subtitle = strings.TrimSpace(in.Subtitle)
	n.Content = in.Content
	n.CoverImage = in.CoverImage
	if in.Category != "" {
		n.Category = models.NewsCategory(in.Category)
	}
	if in.Status == "" {
		in.Status = string(n.Status)
	}
	if err := s.applyStatus(n, in); err != nil {
		return nil, err
	}
	n.Author = nil
	if err := s.DB.WithContext(ctx).Save(n).Error; err != nil {
		return nil, err
	}
	if !wasPublished && n.Status == models.NewsPublished {
		s.announce(n)
	}
	return n, nil
}

func (s *NewsService) Delete(ctx context.Context, actor Actor, id string) error {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND organisation_id = ?", id, actor.OrganisationID).
		Delete(&models.News{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("news")
	}
	return nil
}

func (s *NewsService) Restore(ctx context.Context, actor Actor, id string) (*models.News, error) {
	var n models.News
	if err := restore(ctx, s.DB, &n, id, actor.OrganisationID); err != nil {
		return nil, err
	}
	return &n, nil
}

// PublishDue promotes scheduled articles whose PublishAt has passed.
func (s *NewsService) PublishDue(ctx context.Context) (int, error) {
	now := s.Now()
	var due []models.News
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND publish_at <= ?", models.NewsScheduled, now).
		Find(&due).Error; err != nil {
		return 0, err
	}

	published := 0
	for i := range due {
		n := &due[i]
		n.Status = models.NewsPublished
		n.PublishedAt = &now
		n.PublishAt = nil
		if err := s.DB.WithContext(ctx).Save(n).Error; err != nil {
			log.Errorf("❌ [NEWS] failed to publish %s: %v", n.ID, err)
			continue
		}
		published++
		s.announce(n)
		log.Printf("✅ [NEWS] auto-published: %s", n.Title)
	}
	return published, nil
}

func (s *NewsService) announce(n *models.News) {
	s.Publisher.Publish(realtime.Event{
		Name:           realtime.NewsPublished,
		OrganisationID: n.OrganisationID,
		Data:           payload("id", n.ID, "slug", n.Slug, "title", n.Title, "category", n.Category),
	})
}
