package models

import "time"

// Account statuses. Deactivation is a status change, accounts are never
// hard-deleted by the identity subsystem.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// Account represents a system operator (staff/admin), distinct from the
// business-domain Member entity.
type Account struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:512;not null"`
	FirstName    string `gorm:"size:64"`
	LastName     string `gorm:"size:64"`
	Role         string `gorm:"size:32;not null;default:staff;index"`
	Status       string `gorm:"size:16;not null;default:active"`

	EmailVerified           bool       `gorm:"not null;default:false"`
	EmailVerificationToken  *string    `gorm:"size:128;index"`
	EmailVerificationExpiry *time.Time

	PasswordResetToken  *string    `gorm:"size:128;index"`
	PasswordResetExpiry *time.Time

	LoginAttempts int        `gorm:"not null;default:0"` // 连续登录失败次数
	LockedUntil   *time.Time `gorm:"index"`              // 账户锁定到期时间

	PasswordChangedAt *time.Time
	LastLoginAt       *time.Time
	LastLoginIP       string `gorm:"size:64"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the account may authenticate at all.
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}
