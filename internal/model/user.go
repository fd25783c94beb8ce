package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a marketplace member. PasswordHash is nil for accounts
// that only ever signed in through SSO.
type User struct {
	UserID       string    `json:"user_id" gorm:"type:varchar(32);primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	Picture      *string   `json:"picture" gorm:"size:1024"`
	PasswordHash *string   `json:"-" gorm:"size:255"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"-"`
}

// BeforeCreate sets the public user id before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == "" {
		u.UserID = NewID("user")
	}
	return nil
}

// NewID returns "<prefix>_" followed by 12 random hex characters.
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
