package models

import "gorm.io/datatypes"

type NotificationType string

const (
	NotificationGeneral   NotificationType = "general"
	NotificationSalesTip  NotificationType = "sales_tip"
	NotificationLeave     NotificationType = "leave"
	NotificationQuotation NotificationType = "quotation"
	NotificationRewards   NotificationType = "rewards"
)

type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "unread"
	NotificationRead   NotificationStatus = "read"
)

type Notification struct {
	Base
	Tenant
	UserID   string             `gorm:"type:uuid;index;not null" json:"userId"`
	Type     NotificationType   `gorm:"type:varchar(16);not null" json:"type"`
	Title    string             `gorm:"not null" json:"title"`
	Message  string             `gorm:"type:text;not null" json:"message"`
	Metadata datatypes.JSONMap  `json:"metadata,omitempty"`
	Status   NotificationStatus `gorm:"type:varchar(8);not null;default:'unread';index" json:"status"`
}
