package models

import "time"

// AuditLog records sensitive operations for auditing. Rows are append-only:
// nothing in this subsystem updates or deletes them.
type AuditLog struct {
	ID        uint   `gorm:"primaryKey"`
	ActorID   *uint  `gorm:"index"`
	Action    string `gorm:"size:128"`  // e.g. "POST /api/auth/change-password"
	Resource  string `gorm:"size:255"`  // request path
	Method    string `gorm:"size:16"`
	IP        string `gorm:"size:64"`
	UserAgent string `gorm:"size:255"`
	Metadata  string `gorm:"size:2048"` // truncated request body, redacted on credential routes
	CreatedAt time.Time
}
