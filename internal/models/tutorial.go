package models

import (
	"time"

	"gorm.io/datatypes"
)

// Tutorial is a scheduled, capacity-limited session published by an executive or admin.
type Tutorial struct {
	ID                   uint                        `gorm:"primaryKey" json:"id"`
	Title                string                      `gorm:"size:200;not null" json:"title"`
	Description          string                      `gorm:"type:text" json:"description"`
	Instructor           string                      `gorm:"size:100;not null" json:"instructor"`
	Department           string                      `gorm:"size:100;not null;index" json:"department"`
	Topics               datatypes.JSONSlice[string] `gorm:"type:json" json:"topics"`
	StartDate            time.Time                   `gorm:"not null" json:"start_date"`
	EndDate              time.Time                   `gorm:"not null" json:"end_date"`
	Days                 datatypes.JSONSlice[string] `gorm:"type:json" json:"days"`
	StartTime            string                      `gorm:"size:5;not null" json:"start_time"`
	EndTime              string                      `gorm:"size:5;not null" json:"end_time"`
	MaxStudents          int                         `gorm:"not null" json:"max_students"`
	CurrentRegistrations int                         `gorm:"not null;default:0" json:"current_registrations"`
	IsActive             bool                        `gorm:"not null;index" json:"is_active"`
	CreatedByID          uint                        `gorm:"not null;index" json:"created_by_id"`
	CreatedBy            User                        `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"created_by"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
}

// IsFull reports whether every seat is taken.
func (t Tutorial) IsFull() bool {
	return t.CurrentRegistrations >= t.MaxStudents
}

// AvailableSlots returns the number of free seats, never negative.
func (t Tutorial) AvailableSlots() int {
	if t.CurrentRegistrations >= t.MaxStudents {
		return 0
	}
	return t.MaxStudents - t.CurrentRegistrations
}

// RegistrationStatus is the lifecycle state of a tutorial registration.
type RegistrationStatus string

const (
	// RegistrationStatusRegistered holds a seat.
	RegistrationStatusRegistered RegistrationStatus = "registered"
	// RegistrationStatusAttended is terminal and keeps its seat.
	RegistrationStatusAttended RegistrationStatus = "attended"
	// RegistrationStatusCancelled releases the seat; it can be reactivated.
	RegistrationStatusCancelled RegistrationStatus = "cancelled"
)

// SeatHoldingStatuses lists the statuses counted in current_registrations.
var SeatHoldingStatuses = []RegistrationStatus{RegistrationStatusRegistered, RegistrationStatusAttended}

// HoldsSeat reports whether the status occupies a seat.
func (s RegistrationStatus) HoldsSeat() bool {
	return s == RegistrationStatusRegistered || s == RegistrationStatusAttended
}

// TutorialRegistration is a student's claim on one seat of a tutorial.
// There is at most one row per (student, tutorial) pair.
type TutorialRegistration struct {
	ID           uint               `gorm:"primaryKey" json:"id"`
	StudentID    uint               `gorm:"not null;uniqueIndex:idx_tutorial_registrations_pair" json:"student_id"`
	TutorialID   uint               `gorm:"not null;uniqueIndex:idx_tutorial_registrations_pair;index" json:"tutorial_id"`
	Status       RegistrationStatus `gorm:"size:15;not null;index" json:"status"`
	RegisteredAt time.Time          `gorm:"not null" json:"registered_at"`
	AttendedAt   *time.Time         `json:"attended_at"`
	CancelledAt  *time.Time         `json:"cancelled_at"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Student      User               `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Tutorial     Tutorial           `gorm:"foreignKey:TutorialID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"tutorial"`
}

// TutorialMaterial is a file attached to a tutorial by its creator.
type TutorialMaterial struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TutorialID   uint      `gorm:"not null;index" json:"tutorial_id"`
	Title        string    `gorm:"size:200;not null" json:"title"`
	FileName     string    `gorm:"size:255;not null" json:"file_name"`
	URL          string    `gorm:"size:512;not null" json:"url"`
	MimeType     string    `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes    int64     `gorm:"not null" json:"size_bytes"`
	Checksum     string    `gorm:"size:64;not null" json:"checksum"`
	UploadedByID uint      `gorm:"not null;index" json:"uploaded_by_id"`
	CreatedAt    time.Time `json:"created_at"`
	Tutorial     Tutorial  `gorm:"foreignKey:TutorialID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
