package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AdStatus represents the lifecycle state of a listing.
type AdStatus string

const (
	AdStatusActive  AdStatus = "active"
	AdStatusDeleted AdStatus = "deleted"
)

const (
	// FreeAdImageLimit is the maximum number of images on a free listing.
	FreeAdImageLimit = 5
	// AdLifetime is how long a listing stays up after creation.
	AdLifetime = 21 * 24 * time.Hour
)

// Ad represents a classified listing.
type Ad struct {
	AdID        string          `json:"ad_id" gorm:"type:varchar(32);primaryKey"`
	UserID      string          `json:"user_id" gorm:"type:varchar(32);not null;index"`
	Title       string          `json:"title" gorm:"size:255;not null"`
	Description string          `json:"description" gorm:"type:text;not null"`
	Category    string          `json:"category" gorm:"size:64;not null;index"`
	Subcategory *string         `json:"subcategory" gorm:"size:64;index"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(20,2);not null;default:0"`
	Images      []string        `json:"images" gorm:"serializer:json;type:text"`
	IsPaid      bool            `json:"is_paid" gorm:"default:false"`
	Status      AdStatus        `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	CreatedAt   time.Time       `json:"created_at" gorm:"index"`
	ExpiresAt   time.Time       `json:"expires_at"`
	UpdatedAt   time.Time       `json:"-"`
}

// BeforeCreate sets the public ad id before creating the record.
func (a *Ad) BeforeCreate(tx *gorm.DB) error {
	if a.AdID == "" {
		a.AdID = NewID("ad")
	}
	return nil
}

// ExceedsFreeImageLimit reports whether images would break the free-tier limit
// for an ad with the given paid flag.
func ExceedsFreeImageLimit(isPaid bool, images []string) bool {
	return !isPaid && len(images) > FreeAdImageLimit
}
