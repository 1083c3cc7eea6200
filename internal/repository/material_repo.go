package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
)

// MaterialRepository persists metadata about uploaded tutorial materials.
type MaterialRepository interface {
	Create(ctx context.Context, material *models.TutorialMaterial) error
	ListByTutorial(ctx context.Context, tutorialID uint) ([]models.TutorialMaterial, error)
}

type materialRepository struct {
	db *gorm.DB
}

// NewMaterialRepository constructs a repository for tutorial materials.
func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &materialRepository{db: db}
}

func (r *materialRepository) Create(ctx context.Context, material *models.TutorialMaterial) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(material).Error
}

func (r *materialRepository) ListByTutorial(ctx context.Context, tutorialID uint) ([]models.TutorialMaterial, error) {
	var materials []models.TutorialMaterial
	if err := r.db.WithContext(ctx).
		Where("tutorial_id = ?", tutorialID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&materials).Error; err != nil {
		return nil, err
	}

	return materials, nil
}
