package models

import (
	"strings"
	"time"
)

// Role is the closed set of account roles known to the portal.
type Role string

const (
	// RoleInvalid is returned for unknown or empty role strings.
	RoleInvalid Role = ""
	// RoleStudent can register for tutorials.
	RoleStudent Role = "student"
	// RoleExecutive can publish and manage its own tutorials.
	RoleExecutive Role = "executive"
	// RoleAdmin can manage every tutorial and account.
	RoleAdmin Role = "admin"
)

// ParseRole normalises a free-form role string into a Role.
func ParseRole(value string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleStudent:
		return RoleStudent
	case RoleExecutive:
		return RoleExecutive
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleInvalid
	}
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleExecutive || r == RoleAdmin
}

// IsStaff reports whether the role may publish tutorials.
func (r Role) IsStaff() bool {
	return r == RoleExecutive || r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

// User is an association member account.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	FirstName      string    `gorm:"size:50;not null" json:"first_name"`
	MiddleName     string    `gorm:"size:50" json:"middle_name"`
	LastName       string    `gorm:"size:50;not null" json:"last_name"`
	Email          string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	StudentNumber  *string   `gorm:"size:20;uniqueIndex" json:"student_number"`
	Role           Role      `gorm:"size:15;not null;index" json:"role"`
	ExecutiveTitle string    `gorm:"size:50" json:"executive_title"`
	College        string    `gorm:"size:100" json:"college"`
	Department     string    `gorm:"size:100;index" json:"department"`
	YearOfStudy    string    `gorm:"size:10" json:"year_of_study"`
	IsActive       bool      `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FullName joins the non-empty name parts.
func (u User) FullName() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{u.FirstName, u.MiddleName, u.LastName} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}
