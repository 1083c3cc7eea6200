package dto

import (
	"time"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
)

// MaterialResponse describes a stored tutorial material.
type MaterialResponse struct {
	ID           uint      `json:"id"`
	TutorialID   uint      `json:"tutorial_id"`
	Title        string    `json:"title"`
	FileName     string    `json:"file_name"`
	URL          string    `json:"url"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Checksum     string    `json:"checksum"`
	UploadedByID uint      `json:"uploaded_by_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewMaterialResponse converts a material model.
func NewMaterialResponse(model models.TutorialMaterial) MaterialResponse {
	return MaterialResponse{
		ID:           model.ID,
		TutorialID:   model.TutorialID,
		Title:        model.Title,
		FileName:     model.FileName,
		URL:          model.URL,
		MimeType:     model.MimeType,
		SizeBytes:    model.SizeBytes,
		Checksum:     model.Checksum,
		UploadedByID: model.UploadedByID,
		CreatedAt:    model.CreatedAt,
	}
}
