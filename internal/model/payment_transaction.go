package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment statuses this service writes itself. Everything else is the
// provider's vocabulary and is stored as received.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	CheckoutStatusComplete = "complete"
)

// PaymentTransaction links a provider checkout session to a user and,
// optionally, the ad being upgraded.
type PaymentTransaction struct {
	TransactionID string          `json:"transaction_id" gorm:"type:varchar(32);primaryKey"`
	UserID        string          `json:"user_id" gorm:"type:varchar(32);not null;index"`
	AdID          *string         `json:"ad_id" gorm:"type:varchar(32);index"`
	SessionID     string          `json:"session_id" gorm:"type:varchar(255);uniqueIndex;not null"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(20,2);not null"`
	Currency      string          `json:"currency" gorm:"size:8;not null"`
	PaymentStatus string          `json:"payment_status" gorm:"type:varchar(32);not null;default:'pending';index"`
	Status        string          `json:"status,omitempty" gorm:"type:varchar(32)"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// BeforeCreate sets the public transaction id before creating the record.
func (t *PaymentTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.TransactionID == "" {
		t.TransactionID = NewID("txn")
	}
	return nil
}

// Settled reports whether the transaction reached a state that no longer
// needs the provider to be consulted.
func (t *PaymentTransaction) Settled() bool {
	return t.PaymentStatus == PaymentStatusPaid || t.PaymentStatus == CheckoutStatusComplete
}
