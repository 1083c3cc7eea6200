package dto

import (
	"time"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
)

// UserCreateRequest provisions a portal account.
type UserCreateRequest struct {
	FirstName      string `json:"first_name" validate:"required,max=50"`
	MiddleName     string `json:"middle_name" validate:"omitempty,max=50"`
	LastName       string `json:"last_name" validate:"required,max=50"`
	Email          string `json:"email" validate:"required,email,max=254"`
	StudentNumber  string `json:"student_number" validate:"omitempty,max=20"`
	Role           string `json:"role" validate:"required,max=15"`
	ExecutiveTitle string `json:"executive_title" validate:"omitempty,max=50"`
	College        string `json:"college" validate:"omitempty,max=100"`
	Department     string `json:"department" validate:"omitempty,max=100"`
	YearOfStudy    string `json:"year_of_study" validate:"omitempty,max=10"`
}

// UserRoleUpdateRequest changes the role of an account.
type UserRoleUpdateRequest struct {
	Role           string `json:"role" validate:"required,max=15"`
	ExecutiveTitle string `json:"executive_title" validate:"omitempty,max=50"`
}

// UserListRequest defines account filters.
type UserListRequest struct {
	Search     string
	Role       string
	Department string
	Page       int
	PageSize   int
}

// UserResponse serializes an account.
type UserResponse struct {
	ID             uint      `json:"id"`
	FirstName      string    `json:"first_name"`
	MiddleName     string    `json:"middle_name,omitempty"`
	LastName       string    `json:"last_name"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	StudentNumber  string    `json:"student_number,omitempty"`
	Role           string    `json:"role"`
	ExecutiveTitle string    `json:"executive_title,omitempty"`
	College        string    `json:"college,omitempty"`
	Department     string    `json:"department"`
	YearOfStudy    string    `json:"year_of_study,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserListResponse wraps a page of accounts.
type UserListResponse struct {
	Items      []UserResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// NewUserResponse converts an account model.
func NewUserResponse(model models.User) UserResponse {
	studentNumber := ""
	if model.StudentNumber != nil {
		studentNumber = *model.StudentNumber
	}

	return UserResponse{
		ID:             model.ID,
		FirstName:      model.FirstName,
		MiddleName:     model.MiddleName,
		LastName:       model.LastName,
		FullName:       model.FullName(),
		Email:          model.Email,
		StudentNumber:  studentNumber,
		Role:           model.Role.String(),
		ExecutiveTitle: model.ExecutiveTitle,
		College:        model.College,
		Department:     model.Department,
		YearOfStudy:    model.YearOfStudy,
		IsActive:       model.IsActive,
		CreatedAt:      model.CreatedAt,
	}
}
