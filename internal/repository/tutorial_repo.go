package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
)

// TutorialFilter describes catalogue search and pagination options.
type TutorialFilter struct {
	Search      string
	Department  string
	Instructor  string
	Active      *bool
	CreatedByID *uint
	Sort        string
	Page        int
	PageSize    int
}

// TutorialRepository defines persistence operations for the tutorial catalogue.
type TutorialRepository interface {
	List(ctx context.Context, filter TutorialFilter) ([]models.Tutorial, int64, error)
	GetByID(ctx context.Context, id uint) (models.Tutorial, error)
	Create(ctx context.Context, tutorial *models.Tutorial) error
	Update(ctx context.Context, tutorial *models.Tutorial) error
	Deactivate(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

type tutorialRepository struct {
	db *gorm.DB
}

// NewTutorialRepository instantiates a GORM-backed repository.
func NewTutorialRepository(db *gorm.DB) TutorialRepository {
	return &tutorialRepository{db: db}
}

func (r *tutorialRepository) List(ctx context.Context, filter TutorialFilter) ([]models.Tutorial, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Tutorial{})

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if department := strings.TrimSpace(filter.Department); department != "" {
		query = query.Where("LOWER(department) = ?", strings.ToLower(department))
	}
	if instructor := strings.TrimSpace(filter.Instructor); instructor != "" {
		query = query.Where("LOWER(instructor) = ?", strings.ToLower(instructor))
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}
	if filter.CreatedByID != nil {
		query = query.Where("created_by_id = ?", *filter.CreatedByID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(normalizeTutorialSort(filter.Sort)).Order("id DESC")

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var tutorials []models.Tutorial
	if err := query.Preload("CreatedBy").Find(&tutorials).Error; err != nil {
		return nil, 0, err
	}

	return tutorials, total, nil
}

func (r *tutorialRepository) GetByID(ctx context.Context, id uint) (models.Tutorial, error) {
	var tutorial models.Tutorial
	if err := r.db.WithContext(ctx).Preload("CreatedBy").First(&tutorial, id).Error; err != nil {
		return models.Tutorial{}, err
	}

	return tutorial, nil
}

func (r *tutorialRepository) Create(ctx context.Context, tutorial *models.Tutorial) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(tutorial).Error
}

// Update writes the editable columns. A changed capacity may not drop below
// the seats currently held; current_registrations itself is never written here.
func (r *tutorialRepository) Update(ctx context.Context, tutorial *models.Tutorial) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tutorial.UpdatedAt = time.Now()
		res := tx.Model(&models.Tutorial{}).
			Where("id = ? AND (max_students = ? OR current_registrations <= ?)", tutorial.ID, tutorial.MaxStudents, tutorial.MaxStudents).
			Select("title", "description", "instructor", "department", "topics", "start_date", "end_date",
				"days", "start_time", "end_time", "max_students", "is_active", "updated_at").
			Updates(tutorial)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}

		var current models.Tutorial
		if err := tx.Select("id").First(&current, tutorial.ID).Error; err != nil {
			return err
		}
		return ErrCapacityBelowHeldSeats
	})
}

func (r *tutorialRepository) Deactivate(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Tutorial{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the tutorial together with its registrations and materials.
func (r *tutorialRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tutorial_id = ?", id).Delete(&models.TutorialRegistration{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tutorial_id = ?", id).Delete(&models.TutorialMaterial{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Tutorial{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func normalizeTutorialSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "start_date", "start_date:asc", "start_date.asc":
		return "start_date ASC"
	case "-start_date", "start_date:desc", "start_date.desc":
		return "start_date DESC"
	case "title", "title:asc", "title.asc":
		return "title ASC"
	case "-title", "title:desc", "title.desc":
		return "title DESC"
	case "created_at", "created_at:asc", "created_at.asc":
		return "created_at ASC"
	default:
		return "created_at DESC"
	}
}
