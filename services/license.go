package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"loro-platform/models"
)

// LicenseService resolves organisation licenses. Lookups go through a process-wide
// expirable LRU keyed by organisation id; every write evicts the entry.
type LicenseService struct {
	DB    *gorm.DB
	Now   func() time.Time
	cache *expirable.LRU[string, models.License]
}

func NewLicenseService(db *gorm.DB, size int, ttl time.Duration) *LicenseService {
	if size <= 0 {
		size = 1024
	}
	return &LicenseService{
		DB:    db,
		Now:   func() time.Time { return time.Now().UTC() },
		cache: expirable.NewLRU[string, models.License](size, nil, ttl),
	}
}

// Lookup returns the organisation's license, valid or not.
func (s *LicenseService) Lookup(ctx context.Context, organisationID string) (*models.License, error) {
	if lic, ok := s.cache.Get(organisationID); ok {
		return &lic, nil
	}

	var lic models.License
	err := s.DB.WithContext(ctx).Where("organisation_id = ?", organisationID).First(&lic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("license")
	}
	if err != nil {
		return nil, fmt.Errorf("load license: %w", err)
	}
	s.cache.Add(organisationID, lic)
	return &lic, nil
}

// Validate returns the license only when it is active and unexpired; otherwise ErrForbidden.
func (s *LicenseService) Validate(ctx context.Context, organisationID string) (*models.License, error) {
	if organisationID == "" {
		return nil, fmt.Errorf("no organisation on request: %w", ErrForbidden)
	}
	lic, err := s.Lookup(ctx, organisationID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("organisation has no license: %w", ErrForbidden)
	}
	if err != nil {
		return nil, err
	}
	if !lic.IsValid(s.Now()) {
		return nil, fmt.Errorf("license %s is %s: %w", lic.LicenseKey, lic.Status, ErrForbidden)
	}
	return lic, nil
}

type LicenseInput struct {
	OrganisationID string    `json:"organisationId" validate:"required"`
	Plan           string    `json:"plan" validate:"required,oneof=starter professional business enterprise"`
	ValidUntil     time.Time `json:"validUntil" validate:"required"`
	MaxUsers       int       `json:"maxUsers" validate:"omitempty,min=1"`
}

// Upsert creates the organisation's license or replaces its plan and term, reactivating it.
func (s *LicenseService) Upsert(ctx context.Context, in LicenseInput) (*models.License, error) {
	if !in.ValidUntil.After(s.Now()) {
		return nil, invalid("validUntil", "must be in the future")
	}

	var lic models.License
	err := s.DB.WithContext(ctx).Where("organisation_id = ?", in.OrganisationID).First(&lic).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		lic = models.License{
			OrganisationID: in.OrganisationID,
			LicenseKey:     newLicenseKey(),
		}
	case err != nil:
		return nil, err
	}

	lic.Plan = models.LicensePlan(in.Plan)
	lic.Status = models.LicenseActive
	lic.ValidUntil = in.ValidUntil.UTC()
	if in.MaxUsers > 0 {
		lic.MaxUsers = in.MaxUsers
	} else if lic.MaxUsers == 0 {
		lic.MaxUsers = 10
	}

	if err := s.DB.WithContext(ctx).Save(&lic).Error; err != nil {
		return nil, fmt.Errorf("save license: %w", err)
	}
	s.cache.Remove(in.OrganisationID)
	log.Printf("🔑 [LICENSE] %s plan=%s until=%s", in.OrganisationID, lic.Plan, lic.ValidUntil.Format(time.RFC3339))
	return &lic, nil
}

func (s *LicenseService) Suspend(ctx context.Context, id string) (*models.License, error) {
	var lic models.License
	if err := s.DB.WithContext(ctx).First(&lic, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("license")
		}
		return nil, err
	}
	if lic.Status == models.LicenseSuspended {
		return nil, transitionError(string(lic.Status), string(models.LicenseSuspended))
	}
	lic.Status = models.LicenseSuspended
	if err := s.DB.WithContext(ctx).Save(&lic).Error; err != nil {
		return nil, err
	}
	s.cache.Remove(lic.OrganisationID)
	log.Warnf("⚠️ [LICENSE] suspended %s for %s", lic.LicenseKey, lic.OrganisationID)
	return &lic, nil
}

// ExpireOverdue marks active licenses past their end date as expired.
func (s *LicenseService) ExpireOverdue(ctx context.Context) (int64, error) {
	var orgs []string
	now := s.Now()
	if err := s.DB.WithContext(ctx).Model(&models.License{}).
		Where("status = ? AND valid_until <= ?", models.LicenseActive, now).
		Pluck("organisation_id", &orgs).Error; err != nil {
		return 0, err
	}
	if len(orgs) == 0 {
		return 0, nil
	}

	res := s.DB.WithContext(ctx).Model(&models.License{}).
		Where("status = ? AND valid_until <= ?", models.LicenseActive, now).
		Update("status", models.LicenseExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	for _, org := range orgs {
		s.cache.Remove(org)
	}
	return res.RowsAffected, nil
}

func newLicenseKey() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("LORO-%s-%s-%s", raw[:6], raw[6:12], raw[12:18])
}
