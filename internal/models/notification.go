package models

import "time"

// Notification is a message addressed to a single account.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Type      string     `gorm:"size:64;not null" json:"type"`
	Message   string     `gorm:"type:text" json:"message"`
	Read      bool       `gorm:"not null;index" json:"read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Notification types emitted by the tutorial ledger.
const (
	NotificationTypeRegistration = "tutorial.registration"
	NotificationTypeCancellation = "tutorial.cancellation"
	NotificationTypeAttendance   = "tutorial.attendance"
)
