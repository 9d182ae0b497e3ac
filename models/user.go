package models

import "time"

type Role string

const (
	RoleOwner      Role = "owner"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleSupervisor Role = "supervisor"
	RoleHR         Role = "hr"
	RoleUser       Role = "user"
	RoleDeveloper  Role = "developer"
)

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserInactive  UserStatus = "inactive"
	UserSuspended UserStatus = "suspended"
)

// User is the organisation's local record of a person. ExternalID links it to the
// identity provider and is what bearer tokens carry as `uid`.
type User struct {
	Base
	SoftDelete
	Tenant
	ExternalID  string     `gorm:"uniqueIndex;not null" json:"externalId"`
	Username    string     `gorm:"index;not null" json:"username"`
	Name        string     `json:"name"`
	Surname     string     `json:"surname"`
	Email       string     `gorm:"index" json:"email"`
	Phone       string     `json:"phone,omitempty"`
	PhotoURL    *string    `gorm:"type:text" json:"photoUrl,omitempty"`
	Role        Role       `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	Status      UserStatus `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// FullName joins name and surname, falling back to the username.
func (u *User) FullName() string {
	switch {
	case u.Name != "" && u.Surname != "":
		return u.Name + " " + u.Surname
	case u.Name != "":
		return u.Name
	default:
		return u.Username
	}
}
