package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"loro-platform/models"
)

// ObjectStore is the slice of object storage payslips need.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type PayslipService struct {
	DB        *gorm.DB
	Store     ObjectStore
	SignedTTL time.Duration
}

func NewPayslipService(db *gorm.DB, store ObjectStore, ttl time.Duration) *PayslipService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &PayslipService{DB: db, Store: store, SignedTTL: ttl}
}

type PayslipInput struct {
	UserID      string          `json:"userId" validate:"required"`
	PeriodStart time.Time       `json:"periodStart" validate:"required"`
	PeriodEnd   time.Time       `json:"periodEnd" validate:"required"`
	GrossPay    decimal.Decimal `json:"grossPay"`
	Deductions  decimal.Decimal `json:"deductions"`
	NetPay      decimal.Decimal `json:"netPay"`
	Currency    string          `json:"currency" validate:"omitempty,len=3"`
}

// PayslipFile is the uploaded document.
type PayslipFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// PayslipView adds a short-lived download link to the record.
type PayslipView struct {
	*models.Payslip
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (in PayslipInput) check() error {
	if in.PeriodEnd.Before(in.PeriodStart) {
		return invalid("periodEnd", "must not be before periodStart")
	}
	if in.GrossPay.IsNegative() || in.Deductions.IsNegative() {
		return invalid("grossPay", "amounts must not be negative")
	}
	if !in.GrossPay.Sub(in.Deductions).Equal(in.NetPay) {
		return invalid("netPay", "must equal grossPay minus deductions")
	}
	return nil
}

// PayslipKey is the object key a payslip document is stored under.
func PayslipKey(orgID, userID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("payslips/%s/%s/%s%s", orgID, userID, uuid.NewString(), ext)
}

// Upload stores the document and records the payslip. The object is removed again if the row fails to save.
func (s *PayslipService) Upload(ctx context.Context, actor Actor, in PayslipInput, file PayslipFile) (*models.Payslip, error) {
	if s.Store == nil {
		return nil, errors.New("object storage is not configured")
	}
	if err := in.check(); err != nil {
		return nil, err
	}
	if file.Body == nil || file.Size == 0 {
		return nil, invalid("file", "is required")
	}

	var owner models.User
	if err := s.DB.WithContext(ctx).
		Where("id = ? AND organisation_id = ?", in.UserID, actor.OrganisationID).
		First(&owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("userId", "unknown user")
		}
		return nil, err
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	key := PayslipKey(actor.OrganisationID, owner.ID, file.Name)
	if _, err := s.Store.Put(ctx, key, file.Body, file.Size, contentType); err != nil {
		return nil, fmt.Errorf("store payslip: %w", err)
	}

	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = "ZAR"
	}
	p := models.Payslip{
		Tenant:      models.Tenant{OrganisationID: actor.OrganisationID, BranchID: owner.BranchID},
		UserID:      owner.ID,
		PeriodStart: in.PeriodStart.UTC(),
		PeriodEnd:   in.PeriodEnd.UTC(),
		GrossPay:    in.GrossPay,
		Deductions:  in.Deductions,
		NetPay:      in.NetPay,
		Currency:    currency,
		ObjectKey:   key,
		FileName:    file.Name,
		ContentType: contentType,
		Status:      models.PayslipIssued,
		UploadedBy:  actor.UserID,
	}
	if err := s.DB.WithContext(ctx).Create(&p).Error; err != nil {
		if derr := s.Store.Delete(ctx, key); derr != nil {
			log.Warnf("⚠️ [PAYSLIPS] orphaned object %s: %v", key, derr)
		}
		return nil, fmt.Errorf("record payslip: %w", err)
	}
	log.Printf("✅ [PAYSLIPS] uploaded %s for %s", p.FileName, owner.ID)
	return &p, nil
}

func (s *PayslipService) ListForUser(ctx context.Context, actor Actor, userID string, page, limit int) ([]models.Payslip, int64, error) {
	if userID != actor.UserID && !actor.Is(PeopleAdmins...) {
		return nil, 0, ErrForbidden
	}
	q := s.DB.WithContext(ctx).Model(&models.Payslip{}).
		Where("organisation_id = ? AND user_id = ?", actor.OrganisationID, userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Payslip
	err := q.Order("period_end DESC").Limit(limit).Offset((page - 1) * limit).Find(&out).Error
	return out, total, err
}

// Get returns the payslip with a presigned download URL; only its owner or HR/admin may.
func (s *PayslipService) Get(ctx context.Context, actor Actor, id string) (*PayslipView, error) {
	var p models.Payslip
	err := s.DB.WithContext(ctx).
		Where("id = ? AND organisation_id = ?", id, actor.OrganisationID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("payslip")
	}
	if err != nil {
		return nil, err
	}
	if p.UserID != actor.UserID && !actor.Is(PeopleAdmins...) {
		return nil, ErrForbidden
	}
	if s.Store == nil {
		return nil, errors.New("object storage is not configured")
	}

	url, err := s.Store.PresignGet(ctx, p.ObjectKey, s.SignedTTL)
	if err != nil {
		return nil, fmt.Errorf("sign payslip url: %w", err)
	}
	return &PayslipView{Payslip: &p, DownloadURL: url, ExpiresAt: time.Now().UTC().Add(s.SignedTTL)}, nil
}

// Delete soft-deletes the record; the document stays in storage so it can be restored.
func (s *PayslipService) Delete(ctx context.Context, actor Actor, id string) error {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND organisation_id = ?", id, actor.OrganisationID).
		Delete(&models.Payslip{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("payslip")
	}
	return nil
}
