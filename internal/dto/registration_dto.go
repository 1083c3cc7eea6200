package dto

import (
	"time"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
)

// Tutorial status labels shown next to a student's registrations.
const (
	TutorialStatusActive    = "Active"
	TutorialStatusCompleted = "Completed"
)

// RegistrationResponse serializes a registration row.
type RegistrationResponse struct {
	ID            uint       `json:"id"`
	TutorialID    uint       `json:"tutorial_id"`
	TutorialTitle string     `json:"tutorial_title,omitempty"`
	StudentID     uint       `json:"student_id"`
	Status        string     `json:"status"`
	RegisteredAt  time.Time  `json:"registered_at"`
	AttendedAt    *time.Time `json:"attended_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

// RegisterResponse is returned by a successful registration.
type RegisterResponse struct {
	Registration         RegistrationResponse `json:"registration"`
	Reactivated          bool                 `json:"reactivated"`
	CurrentRegistrations int                  `json:"current_registrations"`
	AvailableSlots       int                  `json:"available_slots"`
}

// RosterEntry is one student on a tutorial roster.
type RosterEntry struct {
	RegistrationID uint      `json:"registration_id"`
	StudentID      uint      `json:"student_id"`
	StudentName    string    `json:"student_name"`
	Email          string    `json:"email"`
	Department     string    `json:"department"`
	YearOfStudy    string    `json:"year_of_study"`
	Status         string    `json:"status"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// RosterResponse lists the registrations of one tutorial.
type RosterResponse struct {
	TutorialID           uint          `json:"tutorial_id"`
	TutorialTitle        string        `json:"tutorial_title"`
	MaxStudents          int           `json:"max_students"`
	CurrentRegistrations int           `json:"current_registrations"`
	Registrations        []RosterEntry `json:"registrations"`
}

// RegisteredTutorialSummary describes the tutorial behind a student's registration.
type RegisteredTutorialSummary struct {
	ID         uint     `json:"id"`
	Title      string   `json:"title"`
	Instructor string   `json:"instructor"`
	Department string   `json:"department"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	Days       []string `json:"days"`
	StartTime  string   `json:"start_time"`
	EndTime    string   `json:"end_time"`
	Status     string   `json:"status"`
}

// MyRegistrationResponse is a registration as seen by its student.
type MyRegistrationResponse struct {
	ID           uint                      `json:"id"`
	Status       string                    `json:"status"`
	RegisteredAt time.Time                 `json:"registered_at"`
	AttendedAt   *time.Time                `json:"attended_at,omitempty"`
	CancelledAt  *time.Time                `json:"cancelled_at,omitempty"`
	Tutorial     RegisteredTutorialSummary `json:"tutorial"`
}

// ReconcileResponse reports a recomputed seat counter.
type ReconcileResponse struct {
	TutorialID  uint `json:"tutorial_id"`
	Previous    int  `json:"previous"`
	Current     int  `json:"current"`
	MaxStudents int  `json:"max_students"`
	Changed     bool `json:"changed"`
	Overbooked  bool `json:"overbooked"`
}

// ReconcileAllResponse summarises a full reconciliation run.
type ReconcileAllResponse struct {
	Checked    int                 `json:"checked"`
	Changed    int                 `json:"changed"`
	Overbooked int                 `json:"overbooked"`
	Results    []ReconcileResponse `json:"results"`
}

// NewRegistrationResponse converts a registration model.
func NewRegistrationResponse(model models.TutorialRegistration) RegistrationResponse {
	return RegistrationResponse{
		ID:            model.ID,
		TutorialID:    model.TutorialID,
		TutorialTitle: model.Tutorial.Title,
		StudentID:     model.StudentID,
		Status:        string(model.Status),
		RegisteredAt:  model.RegisteredAt,
		AttendedAt:    model.AttendedAt,
		CancelledAt:   model.CancelledAt,
	}
}

// NewRosterEntry converts a registration with its preloaded student.
func NewRosterEntry(model models.TutorialRegistration) RosterEntry {
	return RosterEntry{
		RegistrationID: model.ID,
		StudentID:      model.StudentID,
		StudentName:    model.Student.FullName(),
		Email:          model.Student.Email,
		Department:     model.Student.Department,
		YearOfStudy:    model.Student.YearOfStudy,
		Status:         string(model.Status),
		RegisteredAt:   model.RegisteredAt,
	}
}

// NewMyRegistrationResponse converts a registration with its preloaded
// tutorial. A tutorial whose end date has passed is reported as completed.
func NewMyRegistrationResponse(model models.TutorialRegistration, now time.Time) MyRegistrationResponse {
	status := TutorialStatusActive
	if !model.Tutorial.EndDate.IsZero() && model.Tutorial.EndDate.Before(startOfDay(now)) {
		status = TutorialStatusCompleted
	}

	return MyRegistrationResponse{
		ID:           model.ID,
		Status:       string(model.Status),
		RegisteredAt: model.RegisteredAt,
		AttendedAt:   model.AttendedAt,
		CancelledAt:  model.CancelledAt,
		Tutorial: RegisteredTutorialSummary{
			ID:         model.Tutorial.ID,
			Title:      model.Tutorial.Title,
			Instructor: model.Tutorial.Instructor,
			Department: model.Tutorial.Department,
			StartDate:  formatDate(model.Tutorial.StartDate),
			EndDate:    formatDate(model.Tutorial.EndDate),
			Days:       nonNilStrings(model.Tutorial.Days),
			StartTime:  model.Tutorial.StartTime,
			EndTime:    model.Tutorial.EndTime,
			Status:     status,
		},
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
