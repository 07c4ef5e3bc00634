// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles a user can hold.
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// User represents a registered Fruit Map account.
type User struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email         string    `gorm:"uniqueIndex;not null" json:"email"`
	Password      string    `gorm:"not null" json:"-"`
	Username      string    `gorm:"uniqueIndex;size:30;not null" json:"username"`
	FullName      *string   `json:"fullName,omitempty"`
	Location      *string   `json:"location,omitempty"`
	Role          string    `gorm:"size:20;not null;default:user" json:"role"`
	IsActive      bool      `gorm:"not null;default:true" json:"isActive"`
	EmailVerified bool      `gorm:"not null;default:false" json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserSummary is the public slice of a user embedded in tree and review payloads.
// It maps onto the users table so it can be preloaded directly.
type UserSummary struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	FullName *string `json:"fullName,omitempty"`
}

// TableName maps UserSummary onto the users table.
func (UserSummary) TableName() string {
	return "users"
}
