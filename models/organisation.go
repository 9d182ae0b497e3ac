package models

import "time"

type Organisation struct {
	Base
	SoftDelete
	Name    string `gorm:"not null" json:"name"`
	Email   string `gorm:"index" json:"email"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
	Logo    string `gorm:"type:text" json:"logo,omitempty"`

	Branches []Branch `gorm:"foreignKey:OrganisationID" json:"branches,omitempty"`
}

type Branch struct {
	Base
	SoftDelete
	OrganisationID string `gorm:"type:uuid;index;not null" json:"organisationId"`
	Name           string `gorm:"not null" json:"name"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
}

type LicensePlan string

const (
	PlanStarter      LicensePlan = "starter"
	PlanProfessional LicensePlan = "professional"
	PlanBusiness     LicensePlan = "business"
	PlanEnterprise   LicensePlan = "enterprise"
)

type LicenseStatus string

const (
	LicenseActive    LicenseStatus = "active"
	LicenseSuspended LicenseStatus = "suspended"
	LicenseExpired   LicenseStatus = "expired"
)

// License is the organisation's subscription; exactly one row per organisation.
type License struct {
	Base
	OrganisationID string        `gorm:"type:uuid;uniqueIndex;not null" json:"organisationId"`
	LicenseKey     string        `gorm:"uniqueIndex;not null" json:"licenseKey"`
	Plan           LicensePlan   `gorm:"type:varchar(32);not null" json:"plan"`
	Status         LicenseStatus `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	ValidUntil     time.Time     `gorm:"not null" json:"validUntil"`
	MaxUsers       int           `gorm:"default:10" json:"maxUsers"`
}

// IsValid reports whether the license is active and not past its end date.
func (l *License) IsValid(now time.Time) bool {
	return l.Status == LicenseActive && now.Before(l.ValidUntil)
}
