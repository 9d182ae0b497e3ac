package models

import "time"

// Asset is a piece of company equipment assigned to a user.
type Asset struct {
	Base
	SoftDelete
	Tenant
	Brand               string     `gorm:"not null" json:"brand"`
	ModelNumber         string     `json:"modelNumber"`
	SerialNumber        string     `gorm:"not null;index" json:"serialNumber"`
	PurchaseDate        time.Time  `json:"purchaseDate"`
	HasInsurance        bool       `gorm:"default:false" json:"hasInsurance"`
	InsuranceProvider   string     `json:"insuranceProvider,omitempty"`
	InsuranceExpiryDate *time.Time `json:"insuranceExpiryDate,omitempty"`
	OwnerID             *string    `gorm:"type:uuid;index" json:"ownerId,omitempty"`
	Owner               *User      `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}
