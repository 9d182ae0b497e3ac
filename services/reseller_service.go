package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"loro-platform/models"
)

type ResellerService struct {
	DB *gorm.DB
}

func NewResellerService(db *gorm.DB) *ResellerService {
	return &ResellerService{DB: db}
}

type ResellerInput struct {
	Name           string          `json:"name" validate:"required,max=200"`
	Description    string          `json:"description"`
	Email          string          `json:"email" validate:"required,email"`
	Phone          string          `json:"phone" validate:"max=32"`
	Website        string          `json:"website" validate:"omitempty,url"`
	ContactPerson  string          `json:"contactPerson"`
	Address        models.Address  `json:"address"`
	CommissionRate decimal.Decimal `json:"commissionRate"`
	Status         string          `json:"status" validate:"omitempty,oneof=active inactive converted"`
}

func (in ResellerInput) apply(r *models.Reseller) error {
	if in.CommissionRate.IsNegative() || in.CommissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return invalid("commissionRate", "must be between 0 and 100")
	}
	r.Name = strings.TrimSpace(in.Name)
	r.Description = in.Description
	r.Email = strings.ToLower(strings.TrimSpace(in.Email))
	r.Phone = in.Phone
	r.Website = in.Website
	r.ContactPerson = in.ContactPerson
	r.Address = in.Address
	r.CommissionRate = in.CommissionRate
	if in.Status != "" {
		r.Status = models.ResellerStatus(in.Status)
	}
	if r.Status == "" {
		r.Status = models.ResellerActive
	}
	return nil
}

func (s *ResellerService) emailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	q := s.DB.WithContext(ctx).Unscoped().Model(&models.Reseller{}).Where("email = ?", strings.ToLower(strings.TrimSpace(email)))
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (s *ResellerService) Create(ctx context.Context, actor Actor, in ResellerInput) (*models.Reseller, error) {
	taken, err := s.emailTaken(ctx, in.Email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("reseller email %s: %w", in.Email, ErrConflict)
	}
	r := models.Reseller{Tenant: models.Tenant{OrganisationID: actor.OrganisationID, BranchID: actor.BranchID}}
	if err := in.apply(&r); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Create(&r).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("reseller email %s: %w", in.Email, ErrConflict)
		}
		return nil, err
	}
	return &r, nil
}

func (s *ResellerService) List(ctx context.Context, actor Actor, status, search string, page, limit int) ([]models.Reseller, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Reseller{}).Where("organisation_id = ?", actor.OrganisationID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if search != "" {
		term := likeTerm(search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", term, term)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Reseller
	err := q.Order("name ASC").Limit(limit).Offset((page - 1) * limit).Find(&out).Error
	return out, total, err
}

func (s *ResellerService) Get(ctx context.Context, actor Actor, id string) (*models.Reseller, error) {
	var r models.Reseller
	err := s.DB.WithContext(ctx).Where("id = ? AND organisation_id = ?", id, actor.OrganisationID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("reseller")
	}
	return &r, err
}

func (s *ResellerService) Update(ctx context.Context, actor Actor, id string, in ResellerInput) (*models.Reseller, error) {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	taken, err := s.emailTaken(ctx, in.Email, r.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("reseller email %s: %w", in.Email, ErrConflict)
	}
	if err := in.apply(r); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Save(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ResellerService) Delete(ctx context.Context, actor Actor, id string) error {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND organisation_id = ?", id, actor.OrganisationID).
		Delete(&models.Reseller{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("reseller")
	}
	return nil
}

func (s *ResellerService) Restore(ctx context.Context, actor Actor, id string) (*models.Reseller, error) {
	var r models.Reseller
	if err := restore(ctx, s.DB, &r, id, actor.OrganisationID); err != nil {
		return nil, err
	}
	return &r, nil
}
