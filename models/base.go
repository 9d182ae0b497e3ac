package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the UUID primary key and GORM auto-times shared by every entity.
// IDs are generated in Go so the schema stays portable across dialects.
type Base struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// SoftDelete marks an entity as restorable: GORM adds `deleted_at IS NULL` to every query.
type SoftDelete struct {
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`
}

// Tenant scopes a row to an organisation and optionally a branch.
type Tenant struct {
	OrganisationID string  `gorm:"type:uuid;index;not null" json:"organisationId"`
	BranchID       *string `gorm:"type:uuid;index" json:"branchId,omitempty"`
}

// All returns every entity for AutoMigrate, in dependency order.
func All() []interface{} {
	return []interface{}{
		&Organisation{},
		&Branch{},
		&License{},
		&User{},
		&UserRewards{},
		&XPTransaction{},
		&UserAchievement{},
		&Asset{},
		&Leave{},
		&News{},
		&Payslip{},
		&Reseller{},
		&Product{},
		&Quotation{},
		&QuotationItem{},
		&Notification{},
	}
}
