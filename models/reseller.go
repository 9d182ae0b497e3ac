package models

import "github.com/shopspring/decimal"

type ResellerStatus string

const (
	ResellerActive    ResellerStatus = "active"
	ResellerInactive  ResellerStatus = "inactive"
	ResellerConverted ResellerStatus = "converted"
)

// Address is embedded into entities that carry a postal address.
type Address struct {
	Street     string `json:"street,omitempty"`
	Suburb     string `json:"suburb,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

type Reseller struct {
	Base
	SoftDelete
	Tenant
	Name           string          `gorm:"not null;index" json:"name"`
	Description    string          `gorm:"type:text" json:"description,omitempty"`
	Email          string          `gorm:"uniqueIndex;not null" json:"email"`
	Phone          string          `json:"phone,omitempty"`
	Website        string          `json:"website,omitempty"`
	ContactPerson  string          `json:"contactPerson,omitempty"`
	Address        Address         `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"commissionRate"`
	Status         ResellerStatus  `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
}
