package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayslipStatus string

const (
	PayslipDraft  PayslipStatus = "draft"
	PayslipIssued PayslipStatus = "issued"
)

// Payslip metadata; the document itself lives in object storage under ObjectKey.
type Payslip struct {
	Base
	SoftDelete
	Tenant
	UserID      string          `gorm:"type:uuid;index;not null" json:"userId"`
	User        *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PeriodStart time.Time       `gorm:"not null" json:"periodStart"`
	PeriodEnd   time.Time       `gorm:"not null" json:"periodEnd"`
	GrossPay    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"grossPay"`
	Deductions  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"deductions"`
	NetPay      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"netPay"`
	Currency    string          `gorm:"type:varchar(3);default:'ZAR'" json:"currency"`
	ObjectKey   string          `gorm:"type:text;not null" json:"-"`
	FileName    string          `json:"fileName"`
	ContentType string          `json:"contentType"`
	Status      PayslipStatus   `gorm:"type:varchar(16);not null;default:'issued'" json:"status"`
	UploadedBy  string          `gorm:"type:uuid" json:"uploadedBy"`
}
