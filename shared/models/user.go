package models

import (
	"time"
)

// User represents a marketplace user. The primary key is the stable
// subject id issued by the identity provider.
type User struct {
	AuthID      string     `json:"auth_id" gorm:"type:varchar(255);primaryKey"`
	Email       string     `json:"email" gorm:"type:varchar(255);index"`
	Role        UserRole   `json:"role" gorm:"type:varchar(20);default:'tenant'"`
	CreatedAt   time.Time  `json:"created_at" gorm:"default:CURRENT_TIMESTAMP"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type UserRole string

const (
	RoleLandlord UserRole = "landlord"
	RoleTenant   UserRole = "tenant"
	RoleAdmin    UserRole = "admin"
)

func (User) TableName() string {
	return "users"
}

// UserInfo represents user information extracted from JWT claims
type UserInfo struct {
	AuthID  string   `json:"auth_id"`
	Email   string   `json:"email"`
	Role    UserRole `json:"role"`
	IsAdmin bool     `json:"is_admin"`
}

func (ui *UserInfo) IsLandlord() bool {
	return ui.Role == RoleLandlord || ui.IsAdmin
}

func (ui *UserInfo) IsTenant() bool {
	return ui.Role == RoleTenant
}
