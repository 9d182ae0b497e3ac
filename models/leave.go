package models

import "time"

type LeaveType string

const (
	LeaveAnnual               LeaveType = "annual"
	LeaveSick                 LeaveType = "sick"
	LeaveMaternity            LeaveType = "maternity"
	LeavePaternity            LeaveType = "paternity"
	LeaveStudy                LeaveType = "study"
	LeaveUnpaid               LeaveType = "unpaid"
	LeaveCompassionate        LeaveType = "compassionate"
	LeaveFamilyResponsibility LeaveType = "family_responsibility"
)

type LeaveStatus string

const (
	LeavePending   LeaveStatus = "pending"
	LeaveApproved  LeaveStatus = "approved"
	LeaveRejected  LeaveStatus = "rejected"
	LeaveCancelled LeaveStatus = "cancelled"
)

// Leave is a request for time off.
type Leave struct {
	Base
	SoftDelete
	Tenant
	OwnerID         string      `gorm:"type:uuid;index;not null" json:"ownerId"`
	Owner           *User       `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	LeaveType       LeaveType   `gorm:"type:varchar(32);not null" json:"leaveType"`
	StartDate       time.Time   `gorm:"not null" json:"startDate"`
	EndDate         time.Time   `gorm:"not null" json:"endDate"`
	IsHalfDay       bool        `gorm:"default:false" json:"isHalfDay"`
	Duration        float64     `json:"duration"` // days
	Motivation      string      `gorm:"type:text" json:"motivation,omitempty"`
	Status          LeaveStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	ApprovedByID    *string     `gorm:"type:uuid" json:"approvedById,omitempty"`
	ApprovedAt      *time.Time  `json:"approvedAt,omitempty"`
	RejectedAt      *time.Time  `json:"rejectedAt,omitempty"`
	RejectionReason string      `gorm:"type:text" json:"rejectionReason,omitempty"`
	CancelledAt     *time.Time  `json:"cancelledAt,omitempty"`
	Comments        string      `gorm:"type:text" json:"comments,omitempty"`
}
