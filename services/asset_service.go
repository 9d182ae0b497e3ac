package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"loro-platform/models"
)

type AssetService struct {
	DB *gorm.DB
}

func NewAssetService(db *gorm.DB) *AssetService {
	return &AssetService{DB: db}
}

type AssetInput struct {
	Brand               string     `json:"brand" validate:"required,max=120"`
	ModelNumber         string     `json:"modelNumber" validate:"max=120"`
	SerialNumber        string     `json:"serialNumber" validate:"required,max=120"`
	PurchaseDate        time.Time  `json:"purchaseDate" validate:"required"`
	HasInsurance        bool       `json:"hasInsurance"`
	InsuranceProvider   string     `json:"insuranceProvider" validate:"required_if=HasInsurance true"`
	InsuranceExpiryDate *time.Time `json:"insuranceExpiryDate"`
	OwnerID             *string    `json:"ownerId"`
	BranchID            *string    `json:"branchId"`
}

type AssetFilter struct {
	OwnerID  string
	BranchID string
	Search   string
}

func (in AssetInput) apply(a *models.Asset) {
	a.Brand = strings.TrimSpace(in.Brand)
	a.ModelNumber = strings.TrimSpace(in.ModelNumber)
	a.SerialNumber = strings.TrimSpace(in.SerialNumber)
	a.PurchaseDate = in.PurchaseDate.UTC()
	a.HasInsurance = in.HasInsurance
	a.InsuranceProvider = in.InsuranceProvider
	a.InsuranceExpiryDate = in.InsuranceExpiryDate
	a.OwnerID = in.OwnerID
	if in.BranchID != nil {
		a.BranchID = in.BranchID
	}
}

// serialTaken checks serial uniqueness within the organisation, ignoring the asset being edited.
func (s *AssetService) serialTaken(ctx context.Context, orgID, serial, exceptID string) (bool, error) {
	q := s.DB.WithContext(ctx).Model(&models.Asset{}).
		Where("organisation_id = ? AND serial_number = ?", orgID, serial)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (s *AssetService) ownerInOrg(ctx context.Context, orgID string, ownerID *string) error {
	if ownerID == nil || *ownerID == "" {
		return nil
	}
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND organisation_id = ?", *ownerID, orgID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return invalid("ownerId", "unknown user")
	}
	return nil
}

func (s *AssetService) Create(ctx context.Context, actor Actor, in AssetInput) (*models.Asset, error) {
	taken, err := s.serialTaken(ctx, actor.OrganisationID, strings.TrimSpace(in.SerialNumber), "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("serial number %q already registered: %w", in.SerialNumber, ErrConflict)
	}
	if err := s.ownerInOrg(ctx, actor.OrganisationID, in.OwnerID); err != nil {
		return nil, err
	}

	asset := models.Asset{Tenant: models.Tenant{OrganisationID: actor.OrganisationID, BranchID: actor.BranchID}}
	in.apply(&asset)
	if err := s.DB.WithContext(ctx).Create(&asset).Error; err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}
	log.Printf("✅ [ASSETS] registered %s %s (%s)", asset.Brand, asset.ModelNumber, asset.SerialNumber)
	return &asset, nil
}

func (s *AssetService) List(ctx context.Context, actor Actor, f AssetFilter, page, limit int) ([]models.Asset, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Asset{}).Where("organisation_id = ?", actor.OrganisationID)
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.BranchID != "" {
		q = q.Where("branch_id = ?", f.BranchID)
	}
	if f.Search != "" {
		term := likeTerm(f.Search)
		q = q.Where("LOWER(brand) LIKE ? OR LOWER(model_number) LIKE ? OR LOWER(serial_number) LIKE ?", term, term, term)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Asset
	err := q.Preload("Owner").Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&out).Error
	return out, total, err
}

func (s *AssetService) Get(ctx context.Context, actor Actor, id string) (*models.Asset, error) {
	var a models.Asset
	err := s.DB.WithContext(ctx).Preload("Owner").
		Where("id = ? AND organisation_id = ?", id, actor.OrganisationID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("asset")
	}
	return &a, err
}

func (s *AssetService) Update(ctx context.Context, actor Actor, id string, in AssetInput) (*models.Asset, error) {
	a, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	taken, err := s.serialTaken(ctx, actor.OrganisationID, strings.TrimSpace(in.SerialNumber), a.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("serial number %q already registered: %w", in.SerialNumber, ErrConflict)
	}
	if err := s.ownerInOrg(ctx, actor.OrganisationID, in.OwnerID); err != nil {
		return nil, err
	}
	in.apply(a)
	a.Owner = nil
	if err := s.DB.WithContext(ctx).Save(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssetService) Delete(ctx context.Context, actor Actor, id string) error {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND organisation_id = ?", id, actor.OrganisationID).
		Delete(&models.Asset{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("asset")
	}
	return nil
}

func (s *AssetService) Restore(ctx context.Context, actor Actor, id string) (*models.Asset, error) {
	var a models.Asset
	if err := restore(ctx, s.DB, &a, id, actor.OrganisationID); err != nil {
		return nil, err
	}
	return &a, nil
}

// ForUser lists the assets assigned to one user.
func (s *AssetService) ForUser(ctx context.Context, actor Actor, userID string) ([]models.Asset, error) {
	var out []models.Asset
	err := s.DB.WithContext(ctx).
		Where("organisation_id = ? AND owner_id = ?", actor.OrganisationID, userID).
		Order("created_at DESC").Find(&out).Error
	return out, err
}
