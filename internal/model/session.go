package model

import "time"

// Session is an issued session token and its absolute expiry.
type Session struct {
	SessionToken string    `json:"session_token" gorm:"type:varchar(512);primaryKey"`
	UserID       string    `json:"user_id" gorm:"type:varchar(32);not null;index"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName keeps the collection name used by existing deployments.
func (Session) TableName() string {
	return "user_sessions"
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
