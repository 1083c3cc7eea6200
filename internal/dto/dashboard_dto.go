package dto

import "time"

// RegistrationCounts breaks a student's registrations down by status.
type RegistrationCounts struct {
	Registered int64 `json:"registered"`
	Attended   int64 `json:"attended"`
	Cancelled  int64 `json:"cancelled"`
	Total      int64 `json:"total"`
}

// DashboardStudent identifies the student a dashboard belongs to.
type DashboardStudent struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Department  string `json:"department"`
	YearOfStudy string `json:"year_of_study"`
}

// AvailableTutorial is an open tutorial offered on the student dashboard.
type AvailableTutorial struct {
	ID             uint     `json:"id"`
	Title          string   `json:"title"`
	Instructor     string   `json:"instructor"`
	StartDate      string   `json:"start_date"`
	Days           []string `json:"days"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time"`
	AvailableSlots int      `json:"available_slots"`
	IsFull         bool     `json:"is_full"`
	IsRegistered   bool     `json:"is_registered"`
}

// StudentDashboardResponse aggregates what a student sees on login.
type StudentDashboardResponse struct {
	Student             DashboardStudent         `json:"student"`
	AvailableTutorials  []AvailableTutorial      `json:"available_tutorials"`
	RecentRegistrations []MyRegistrationResponse `json:"recent_registrations"`
	Counts              RegistrationCounts       `json:"counts"`
	GeneratedAt         time.Time                `json:"generated_at"`
	CacheHit            bool                     `json:"cache_hit"`
}

// ExecutiveTutorialSummary is a tutorial row on the executive dashboard.
type ExecutiveTutorialSummary struct {
	ID                   uint   `json:"id"`
	Title                string `json:"title"`
	IsActive             bool   `json:"is_active"`
	StartDate            string `json:"start_date"`
	MaxStudents          int    `json:"max_students"`
	CurrentRegistrations int    `json:"current_registrations"`
	AvailableSlots       int    `json:"available_slots"`
}

// ExecutiveDashboardResponse aggregates an executive's published tutorials.
type ExecutiveDashboardResponse struct {
	TotalTutorials  int64                      `json:"total_tutorials"`
	ActiveTutorials int64                      `json:"active_tutorials"`
	TotalCapacity   int64                      `json:"total_capacity"`
	SeatsHeld       int64                      `json:"seats_held"`
	RecentTutorials []ExecutiveTutorialSummary `json:"recent_tutorials"`
	GeneratedAt     time.Time                  `json:"generated_at"`
	CacheHit        bool                       `json:"cache_hit"`
}
