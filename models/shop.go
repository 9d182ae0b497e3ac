package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Product struct {
	Base
	SoftDelete
	Tenant
	Name          string          `gorm:"not null" json:"name"`
	Slug          string          `gorm:"index;not null" json:"slug"`
	Description   string          `gorm:"type:text" json:"description,omitempty"`
	Category      string          `gorm:"index;not null" json:"category"`
	SKU           string          `gorm:"index" json:"sku,omitempty"`
	Price         decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"price"`
	SalePrice     decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"salePrice"`
	IsOnPromotion bool            `gorm:"default:false;index" json:"isOnPromotion"`
	StockQuantity int             `gorm:"default:0" json:"stockQuantity"`
	ImageURL      string          `gorm:"type:text" json:"imageUrl,omitempty"`
	ResellerID    *string         `gorm:"type:uuid;index" json:"resellerId,omitempty"`
}

// EffectivePrice is the sale price while on promotion, the list price otherwise.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.IsOnPromotion && p.SalePrice.IsPositive() {
		return p.SalePrice
	}
	return p.Price
}

type QuotationStatus string

const (
	QuotationDraft           QuotationStatus = "draft"
	QuotationPendingInternal QuotationStatus = "pending_internal"
	QuotationPendingClient   QuotationStatus = "pending_client"
	QuotationNegotiation     QuotationStatus = "negotiation"
	QuotationApproved        QuotationStatus = "approved"
	QuotationRejected        QuotationStatus = "rejected"
	QuotationSourcing        QuotationStatus = "sourcing"
	QuotationPacking         QuotationStatus = "packing"
	QuotationInFulfillment   QuotationStatus = "in_fulfillment"
	QuotationCompleted       QuotationStatus = "completed"
	QuotationCancelled       QuotationStatus = "cancelled"
)

// Quotation is a preliminary sales document that may later be fulfilled as an order.
type Quotation struct {
	Base
	Tenant
	QuotationNumber string          `gorm:"uniqueIndex;not null" json:"quotationNumber"`
	ClientName      string          `gorm:"not null" json:"clientName"`
	ClientEmail     string          `gorm:"not null" json:"clientEmail"`
	PlacedByID      string          `gorm:"type:uuid;index;not null" json:"placedById"`
	PlacedBy        *User           `gorm:"foreignKey:PlacedByID" json:"placedBy,omitempty"`
	ResellerID      *string         `gorm:"type:uuid;index" json:"resellerId,omitempty"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"totalAmount"`
	TotalItems      int             `json:"totalItems"`
	Currency        string          `gorm:"type:varchar(3);default:'ZAR'" json:"currency"`
	Status          QuotationStatus `gorm:"type:varchar(24);not null;default:'draft';index" json:"status"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	ValidUntil      *time.Time      `json:"validUntil,omitempty"`
	SentAt          *time.Time      `json:"sentAt,omitempty"`
	StatusChangedAt *time.Time      `json:"statusChangedAt,omitempty"`

	Items []QuotationItem `gorm:"foreignKey:QuotationID" json:"items"`
}

type QuotationItem struct {
	Base
	QuotationID string          `gorm:"type:uuid;index;not null" json:"quotationId"`
	ProductID   string          `gorm:"type:uuid;index;not null" json:"productId"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unitPrice"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"totalPrice"`
	Snapshot    datatypes.JSON  `json:"snapshot,omitempty"` // product fields at checkout time
}
