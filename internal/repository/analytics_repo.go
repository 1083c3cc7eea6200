package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
)

// AnalyticsRepository supplies raw data for the tutorial dashboards.
type AnalyticsRepository interface {
	ListTutorials(ctx context.Context) ([]models.Tutorial, error)
	CountRegistrationsByStatus(ctx context.Context) (map[models.RegistrationStatus]int64, error)
	CountUsersByRole(ctx context.Context) (map[models.Role]int64, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository constructs the analytics repository.
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) ListTutorials(ctx context.Context) ([]models.Tutorial, error) {
	var tutorials []models.Tutorial
	err := r.db.WithContext(ctx).
		Select("id", "title", "department", "instructor", "max_students", "current_registrations", "is_active", "created_by_id", "created_at").
		Order("created_at DESC").
		Find(&tutorials).Error
	return tutorials, err
}

func (r *analyticsRepository) CountRegistrationsByStatus(ctx context.Context) (map[models.RegistrationStatus]int64, error) {
	var rows []struct {
		Status models.RegistrationStatus
		Total  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.TutorialRegistration{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.RegistrationStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *analyticsRepository) CountUsersByRole(ctx context.Context) (map[models.Role]int64, error) {
	var rows []struct {
		Role  models.Role
		Total int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("role, COUNT(*) AS total").
		Where("is_active = ?", true).
		Group("role").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.Role]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Total
	}
	return counts, nil
}
