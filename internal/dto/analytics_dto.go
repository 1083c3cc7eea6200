package dto

import "time"

// DepartmentAnalytics aggregates tutorials of one department.
type DepartmentAnalytics struct {
	Department string  `json:"department"`
	Tutorials  int64   `json:"tutorials"`
	Capacity   int64   `json:"capacity"`
	SeatsHeld  int64   `json:"seats_held"`
	FillRate   float64 `json:"fill_rate"`
}

// TutorialFill ranks a tutorial by how full it is.
type TutorialFill struct {
	ID                   uint    `json:"id"`
	Title                string  `json:"title"`
	Department           string  `json:"department"`
	MaxStudents          int     `json:"max_students"`
	CurrentRegistrations int     `json:"current_registrations"`
	FillRate             float64 `json:"fill_rate"`
}

// TutorialAnalyticsResponse is the admin summary of the registration ledger.
type TutorialAnalyticsResponse struct {
	TotalTutorials        int64                 `json:"total_tutorials"`
	ActiveTutorials       int64                 `json:"active_tutorials"`
	TotalCapacity         int64                 `json:"total_capacity"`
	SeatsHeld             int64                 `json:"seats_held"`
	FillRate              float64               `json:"fill_rate"`
	RegistrationsByStatus map[string]int64      `json:"registrations_by_status"`
	AccountsByRole        map[string]int64      `json:"accounts_by_role"`
	Departments           []DepartmentAnalytics `json:"departments"`
	TopTutorials          []TutorialFill        `json:"top_tutorials"`
	GeneratedAt           time.Time             `json:"generated_at"`
	CacheHit              bool                  `json:"cache_hit"`
}
