package dto

import (
	"time"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
)

// TutorialCreateRequest validates tutorial creation payloads. Dates use
// YYYY-MM-DD and times HH:MM. Description accepts an HTML fragment.
type TutorialCreateRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=200"`
	Description string   `json:"description" validate:"omitempty,max=5000"`
	Instructor  string   `json:"instructor" validate:"required,max=100"`
	Department  string   `json:"department" validate:"required,max=100"`
	Topics      []string `json:"topics" validate:"omitempty,max=20,dive,required,max=80"`
	StartDate   string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	Days        []string `json:"days" validate:"required,min=1,max=7,dive,required"`
	StartTime   string   `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string   `json:"end_time" validate:"required,datetime=15:04"`
	MaxStudents int      `json:"max_students" validate:"required,gte=1,lte=1000"`
	IsActive    *bool    `json:"is_active"`
}

// TutorialUpdateRequest captures partial tutorial updates.
type TutorialUpdateRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=3,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	Instructor  *string   `json:"instructor" validate:"omitempty,min=1,max=100"`
	Department  *string   `json:"department" validate:"omitempty,min=1,max=100"`
	Topics      *[]string `json:"topics" validate:"omitempty,max=20,dive,required,max=80"`
	StartDate   *string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Days        *[]string `json:"days" validate:"omitempty,min=1,max=7,dive,required"`
	StartTime   *string   `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime     *string   `json:"end_time" validate:"omitempty,datetime=15:04"`
	MaxStudents *int      `json:"max_students" validate:"omitempty,gte=1,lte=1000"`
	IsActive    *bool     `json:"is_active"`
}

// TutorialListRequest defines catalogue filters.
type TutorialListRequest struct {
	Search     string
	Department string
	Instructor string
	Active     *bool
	Sort       string
	Page       int
	PageSize   int
}

// TutorialCreatorSummary identifies who published a tutorial.
type TutorialCreatorSummary struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	ExecutiveTitle string `json:"executive_title,omitempty"`
}

// TutorialResponse serializes a tutorial with derived seat information.
// Description is a sanitized HTML fragment, so text is entity-encoded.
type TutorialResponse struct {
	ID                   uint                   `json:"id"`
	Title                string                 `json:"title"`
	Description          string                 `json:"description"`
	Instructor           string                 `json:"instructor"`
	Department           string                 `json:"department"`
	Topics               []string               `json:"topics"`
	StartDate            string                 `json:"start_date"`
	EndDate              string                 `json:"end_date"`
	Days                 []string               `json:"days"`
	StartTime            string                 `json:"start_time"`
	EndTime              string                 `json:"end_time"`
	MaxStudents          int                    `json:"max_students"`
	CurrentRegistrations int                    `json:"current_registrations"`
	AvailableSlots       int                    `json:"available_slots"`
	IsFull               bool                   `json:"is_full"`
	IsActive             bool                   `json:"is_active"`
	CreatedBy            TutorialCreatorSummary `json:"created_by"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// TutorialListResponse wraps a page of tutorials.
type TutorialListResponse struct {
	Items      []TutorialResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewTutorialResponse converts a tutorial model to its API shape.
func NewTutorialResponse(model models.Tutorial) TutorialResponse {
	creator := TutorialCreatorSummary{ID: model.CreatedByID}
	if model.CreatedBy.ID != 0 {
		creator.Name = model.CreatedBy.FullName()
		creator.ExecutiveTitle = model.CreatedBy.ExecutiveTitle
	}

	return TutorialResponse{
		ID:                   model.ID,
		Title:                model.Title,
		Description:          model.Description,
		Instructor:           model.Instructor,
		Department:           model.Department,
		Topics:               nonNilStrings(model.Topics),
		StartDate:            formatDate(model.StartDate),
		EndDate:              formatDate(model.EndDate),
		Days:                 nonNilStrings(model.Days),
		StartTime:            model.StartTime,
		EndTime:              model.EndTime,
		MaxStudents:          model.MaxStudents,
		CurrentRegistrations: model.CurrentRegistrations,
		AvailableSlots:       model.AvailableSlots(),
		IsFull:               model.IsFull(),
		IsActive:             model.IsActive,
		CreatedBy:            creator,
		CreatedAt:            model.CreatedAt,
		UpdatedAt:            model.UpdatedAt,
	}
}

// NewTutorialResponseSlice converts tutorials to DTOs.
func NewTutorialResponseSlice(items []models.Tutorial) []TutorialResponse {
	out := make([]TutorialResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewTutorialResponse(item))
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return append([]string(nil), values...)
}
