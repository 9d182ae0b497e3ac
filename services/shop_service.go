package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"loro-platform/models"
	"loro-platform/realtime"
)

// quotationTransitions lists the statuses each status may move to. Statuses without
// an entry are terminal.
var quotationTransitions = map[models.QuotationStatus][]models.QuotationStatus{
	models.QuotationDraft:           {models.QuotationPendingInternal, models.QuotationPendingClient, models.QuotationCancelled},
	models.QuotationPendingInternal: {models.QuotationPendingClient, models.QuotationRejected, models.QuotationCancelled},
	models.QuotationPendingClient:   {models.QuotationApproved, models.QuotationRejected, models.QuotationNegotiation, models.QuotationCancelled},
	models.QuotationNegotiation:     {models.QuotationPendingClient, models.QuotationCancelled},
	models.QuotationApproved:        {models.QuotationSourcing, models.QuotationCancelled},
	models.QuotationSourcing:        {models.QuotationPacking},
	models.QuotationPacking:         {models.QuotationInFulfillment},
	models.QuotationInFulfillment:   {models.QuotationCompleted},
}

// reviewedStatuses are the workflow decisions only managers may record.
var reviewedStatuses = map[models.QuotationStatus]bool{
	models.QuotationPendingInternal: true,
	models.QuotationApproved:        true,
	models.QuotationRejected:        true,
}

// CanTransition reports whether a quotation may move from one status to another.
func CanTransition(from, to models.QuotationStatus) bool {
	for _, next := range quotationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type ShopService struct {
	DB            *gorm.DB
	Publisher     realtime.Publisher
	Notifications *NotificationService
	Rewards       *RewardsService
	Now           func() time.Time
}

func NewShopService(db *gorm.DB, pub realtime.Publisher, notifications *NotificationService, rewards *RewardsService) *ShopService {
	if pub == nil {
		pub = realtime.NopPublisher{}
	}
	return &ShopService{
		DB:            db,
		Publisher:     pub,
		Notifications: notifications,
		Rewards:       rewards,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// ---------- products ----------

type ProductInput struct {
	Name          string          `json:"name" validate:"required,max=200"`
	Description   string          `json:"description"`
	Category      string          `json:"category" validate:"required,max=80"`
	SKU           string          `json:"sku" validate:"max=64"`
	Price         decimal.Decimal `json:"price"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	IsOnPromotion bool            `json:"isOnPromotion"`
	StockQuantity int             `json:"stockQuantity" validate:"min=0"`
	ImageURL      string          `json:"imageUrl" validate:"omitempty,url"`
	ResellerID    *string         `json:"resellerId"`
}

func (in ProductInput) apply(p *models.Product) error {
	if !in.Price.IsPositive() {
		return invalid("price", "must be greater than 0")
	}
	if in.SalePrice.IsNegative() {
		return invalid("salePrice", "must not be negative")
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Slug = slug.Make(p.Name)
	p.Description = in.Description
	p.Category = strings.ToLower(strings.TrimSpace(in.Category))
	p.SKU = in.SKU
	p.Price = in.Price
	p.SalePrice = in.SalePrice
	p.IsOnPromotion = in.IsOnPromotion
	p.StockQuantity = in.StockQuantity
	p.ImageURL = in.ImageURL
	return nil
}

// resellerRef returns the reseller id when it names a reseller of the caller's organisation.
func (s *ShopService) resellerRef(ctx context.Context, actor Actor, id *string) (*string, error) {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil, nil
	}
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.Reseller{}).
		Where("id = ? AND organisation_id = ?", *id, actor.OrganisationID).
		Count(&n).Error; err != nil {
		return nil, fmt.Errorf("load reseller: %w", err)
	}
	if n == 0 {
		return nil, invalid("resellerId", "unknown reseller")
	}
	return id, nil
}

func (s *ShopService) CreateProduct(ctx context.Context, actor Actor, in ProductInput) (*models.Product, error) {
	p := models.Product{Tenant: models.Tenant{OrganisationID: actor.OrganisationID, BranchID: actor.BranchID}}
	if err := in.apply(&p); err != nil {
		return nil, err
	}
	ref, err := s.resellerRef(ctx, actor, in.ResellerID)
	if err != nil {
		return nil, err
	}
	p.ResellerID = ref
	if err := s.DB.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return &p, nil
}

type ProductFilter struct {
	Category     string
	Search       string
	OnlySpecials bool
}

func (s *ShopService) ListProducts(ctx context.Context, actor Actor, f ProductFilter, page, limit int) ([]models.Product, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Product{}).Where("organisation_id = ?", actor.OrganisationID)
	if f.Category != "" {
		q = q.Where("category = ?", strings.ToLower(f.Category))
	}
	if f.Search != "" {
		term := likeTerm(f.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", term, term)
	}
	if f.OnlySpecials {
		q = q.Where("is_on_promotion = ?", true)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Product
	err := q.Order("name ASC").Limit(limit).Offset((page - 1) * limit).Find(&out).Error
	return out, total, err
}

// Categories returns the distinct product categories in use.
func (s *ShopService) Categories(ctx context.Context, actor Actor) ([]string, error) {
	var out []string
	err := s.DB.WithContext(ctx).Model(&models.Product{}).
		Where("organisation_id = ?", actor.OrganisationID).
		Distinct().Order("category ASC").
		Pluck("category", &out).Error
	return out, err
}

func (s *ShopService) GetProduct(ctx context.Context, actor Actor, id string) (*models.Product, error) {
	var p models.Product
	err := s.DB.WithContext(ctx).Where("id = ? AND organisation_id = ?", id, actor.OrganisationID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("product")
	}
	return &p, err
}

func (s *ShopService) UpdateProduct(ctx context.Context, actor Actor, id string, in ProductInput) (*models.Product, error) {
	p, err := s.GetProduct(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if p.ResellerID, err = s.resellerRef(ctx, actor, in.ResellerID); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Save(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ShopService) DeleteProduct(ctx context.Context, actor Actor, id string) error {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND organisation_id = ?", id, actor.OrganisationID).
		Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("product")
	}
	return nil
}

// ---------- quotations ----------

type CheckoutItem struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type CheckoutInput struct {
	ClientName  string         `json:"clientName" validate:"required"`
	ClientEmail string         `json:"clientEmail" validate:"required,email"`
	ResellerID  *string        `json:"resellerId"`
	Currency    string         `json:"currency" validate:"omitempty,len=3"`
	Notes       string         `json:"notes"`
	ValidUntil  *time.Time     `json:"validUntil"`
	Items       []CheckoutItem `json:"items" validate:"required,min=1,dive"`
}

// NewQuotationNumber formats QUO-<yyyymmdd>-<6 hex>.
func NewQuotationNumber(now time.Time) string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("QUO-%s-%s", now.UTC().Format("20060102"), hex)
}

type productSnapshot struct {
	Name          string `json:"name"`
	SKU           string `json:"sku,omitempty"`
	Category      string `json:"category"`
	Price         string `json:"price"`
	SalePrice     string `json:"salePrice,omitempty"`
	IsOnPromotion bool   `json:"isOnPromotion"`
}

// Checkout prices each line at the product's effective price and stores a draft quotation.
func (s *ShopService) Checkout(ctx context.Context, actor Actor, in CheckoutInput) (*models.Quotation, error) {
	if len(in.Items) == 0 {
		return nil, invalid("items", "at least one item is required")
	}
	ids := make([]string, 0, len(in.Items))
	for i, it := range in.Items {
		if it.Quantity < 1 {
			return nil, invalid(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
		ids = append(ids, it.ProductID)
	}
	resellerID, err := s.resellerRef(ctx, actor, in.ResellerID)
	if err != nil {
		return nil, err
	}

	var products []models.Product
	if err := s.DB.WithContext(ctx).
		Where("organisation_id = ? AND id IN ?", actor.OrganisationID, ids).
		Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	now := s.Now()
	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = "ZAR"
	}
	q := models.Quotation{
		Tenant:          models.Tenant{OrganisationID: actor.OrganisationID, BranchID: actor.BranchID},
		QuotationNumber: NewQuotationNumber(now),
		ClientName:      strings.TrimSpace(in.ClientName),
		ClientEmail:     strings.ToLower(strings.TrimSpace(in.ClientEmail)),
		PlacedByID:      actor.UserID,
		ResellerID:      resellerID,
		Currency:        currency,
		Status:          models.QuotationDraft,
		Notes:           in.Notes,
		ValidUntil:      in.ValidUntil,
		StatusChangedAt: &now,
	}

	total := decimal.Zero
	for i, it := range in.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, invalid(fmt.Sprintf("items[%d].productId", i), "unknown product")
		}
		unit := p.EffectivePrice()
		line := unit.Mul(decimal.NewFromInt(int64(it.Quantity)))
		snap, _ := json.Marshal(productSnapshot{
			Name:          p.Name,
			SKU:           p.SKU,
			Category:      p.Category,
			Price:         p.Price.StringFixed(2),
			SalePrice:     p.SalePrice.StringFixed(2),
			IsOnPromotion: p.IsOnPromotion,
		})
		q.Items = append(q.Items, models.QuotationItem{
			ProductID:  p.ID,
			Quantity:   it.Quantity,
			UnitPrice:  unit,
			TotalPrice: line,
			Snapshot:   datatypes.JSON(snap),
		})
		total = total.Add(line)
		q.TotalItems += it.Quantity
	}
	q.TotalAmount = total

	if err := s.DB.WithContext(ctx).Create(&q).Error; err != nil {
		return nil, fmt.Errorf("create quotation: %w", err)
	}

	s.Publisher.Publish(realtime.Event{
		Name:           realtime.QuotationNew,
		OrganisationID: q.OrganisationID,
		Data:           payload("id", q.ID, "quotationNumber", q.QuotationNumber, "total", q.TotalAmount.StringFixed(2), "placedById", q.PlacedByID),
	})
	if s.Rewards != nil {
		s.Rewards.AwardBestEffort(ctx, AwardXPInput{
			UserID:         actor.UserID,
			OrganisationID: actor.OrganisationID,
			BranchID:       actor.BranchID,
			Amount:         QuotationCreatedXP,
			Source:         XPSource{Type: "quotation", ID: q.ID, Details: map[string]interface{}{"quotationNumber": q.QuotationNumber}},
		})
	}
	log.Printf("🛒 [SHOP] quotation %s placed by %s (%s %s)", q.QuotationNumber, actor.UserID, q.Currency, q.TotalAmount.StringFixed(2))
	return &q, nil
}

type QuotationFilter struct {
	Status     string
	PlacedByID string
}

func (s *ShopService) ListQuotations(ctx context.Context, actor Actor, f QuotationFilter, page, limit int) ([]models.Quotation, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Quotation{}).Where("organisation_id = ?", actor.OrganisationID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PlacedByID != "" {
		q = q.Where("placed_by_id = ?", f.PlacedByID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Quotation
	err := q.Preload("Items").Preload("PlacedBy").Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).Find(&out).Error
	return out, total, err
}

func (s *ShopService) GetQuotation(ctx context.Context, actor Actor, id string) (*models.Quotation, error) {
	var q models.Quotation
	err := s.DB.WithContext(ctx).Preload("Items").Preload("PlacedBy").
		Where("id = ? AND organisation_id = ?", id, actor.OrganisationID).First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("quotation")
	}
	return &q, err
}

// UpdateStatus moves a quotation along the workflow. Reaching approved credits the placer.
func (s *ShopService) UpdateStatus(ctx context.Context, actor Actor, id string, to models.QuotationStatus) (*models.Quotation, error) {
	if reviewedStatuses[to] && !actor.Is(Managers...) {
		return nil, fmt.Errorf("only managers may mark a quotation %s: %w", to, ErrForbidden)
	}
	if to == models.QuotationApproved {
		current, err := s.GetQuotation(ctx, actor, id)
		if err != nil {
			return nil, err
		}
		if current.PlacedByID == actor.UserID {
			return nil, fmt.Errorf("cannot approve your own quotation: %w", ErrForbidden)
		}
	}

	q, err := s.transition(ctx, actor, id, to, nil)
	if err != nil {
		return nil, err
	}
	if to == models.QuotationApproved && s.Rewards != nil {
		s.Rewards.AwardBestEffort(ctx, AwardXPInput{
			UserID:         q.PlacedByID,
			OrganisationID: q.OrganisationID,
			BranchID:       q.BranchID,
			Amount:         QuotationWonXP,
			Source:         XPSource{Type: "sale", ID: q.ID, Details: map[string]interface{}{"quotationNumber": q.QuotationNumber}},
		})
	}
	return q, nil
}

// Send hands a draft or internally pending quotation to the client.
func (s *ShopService) Send(ctx context.Context, actor Actor, id string) (*models.Quotation, error) {
	q, err := s.GetQuotation(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if q.Status != models.QuotationDraft && q.Status != models.QuotationPendingInternal {
		return nil, transitionError(string(q.Status), string(models.QuotationPendingClient))
	}

	now := s.Now()
	q, err = s.transition(ctx, actor, id, models.QuotationPendingClient, &now)
	if err != nil {
		return nil, err
	}
	s.Publisher.Publish(realtime.Event{
		Name:           realtime.QuotationSent,
		OrganisationID: q.OrganisationID,
		Data:           payload("id", q.ID, "quotationNumber", q.QuotationNumber, "clientEmail", q.ClientEmail),
	})
	if s.Notifications != nil {
		if _, err := s.Notifications.Notify(ctx, NotificationInput{
			UserID:         q.PlacedByID,
			OrganisationID: q.OrganisationID,
			Type:           models.NotificationQuotation,
			Title:          "Quotation sent",
			Message:        fmt.Sprintf("%s was sent to %s", q.QuotationNumber, q.ClientName),
			Metadata:       map[string]interface{}{"quotationId": q.ID},
		}); err != nil {
			log.Warnf("⚠️ [SHOP] placer notification failed for %s: %v", q.QuotationNumber, err)
		}
	}
	return q, nil
}

func (s *ShopService) transition(ctx context.Context, actor Actor, id string, to models.QuotationStatus, sentAt *time.Time) (*models.Quotation, error) {
	q, err := s.GetQuotation(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := q.Status
	if !CanTransition(from, to) {
		return nil, transitionError(string(from), string(to))
	}

	now := s.Now()
	updates := map[string]interface{}{"status": to, "status_changed_at": now}
	if sentAt != nil {
		updates["sent_at"] = *sentAt
	}
	res := s.DB.WithContext(ctx).Model(&models.Quotation{}).
		Where("id = ? AND status = ?", q.ID, from).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, transitionError(string(from), string(to))
	}

	q.Status = to
	q.StatusChangedAt = &now
	if sentAt != nil {
		q.SentAt = sentAt
	}
	s.Publisher.Publish(realtime.Event{
		Name:           realtime.QuotationStatusChanged,
		OrganisationID: q.OrganisationID,
		Data:           payload("id", q.ID, "quotationNumber", q.QuotationNumber, "from", from, "to", to, "by", actor.UserID),
	})
	log.Printf("🔁 [SHOP] %s: %s → %s", q.QuotationNumber, from, to)
	return q, nil
}
