package models

import "time"

// Session stores server-side login sessions (for logout, revocation, audit).
// The opaque token is the only client-held credential; IP and UserAgent are
// recorded for display/audit only and never drive authorization decisions.
type Session struct {
	ID             string    `gorm:"primaryKey;size:64"` // UUID
	AccountID      uint      `gorm:"index;not null"`
	Token          string    `gorm:"size:128;uniqueIndex;not null"`
	IP             string    `gorm:"size:64"`
	UserAgent      string    `gorm:"size:255"`
	CreatedAt      time.Time
	LastActivityAt time.Time `gorm:"not null"`
	ExpiresAt      time.Time `gorm:"index;not null"` // absolute expiry
	IsActive       bool      `gorm:"index;not null"`

	Account Account `gorm:"constraint:OnDelete:CASCADE"`
}
