package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
)

// ValidRole reports whether role is one the service grants.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleAnalyst
}

// User is an account allowed to sign in. Admins manage the catalog and users;
// analysts save and compare runs.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email     string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_email_live,where:deleted_at IS NULL" json:"email"`
	Password  string         `gorm:"type:varchar(255);not null" json:"-"`
	Role      string         `gorm:"type:varchar(20);not null" json:"role"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
