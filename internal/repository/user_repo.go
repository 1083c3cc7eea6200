package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
)

// UserFilter narrows account listings.
type UserFilter struct {
	Search     string
	Role       models.Role
	Department string
	Page       int
	PageSize   int
}

// UserRepository provides access to portal accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	Create(ctx context.Context, user *models.User) error
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
	UpdateRole(ctx context.Context, id uint, role models.Role, executiveTitle string) (models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs an account repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern, pattern)
	}
	if filter.Role.Valid() {
		query = query.Where("role = ?", filter.Role)
	}
	if department := strings.TrimSpace(filter.Department); department != "" {
		query = query.Where("LOWER(department) = ?", strings.ToLower(department))
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var users []models.User
	if err := query.Order("last_name ASC").Order("first_name ASC").Order("id ASC").Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) UpdateRole(ctx context.Context, id uint, role models.Role, executiveTitle string) (models.User, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"role": role, "executive_title": executiveTitle})
	if res.Error != nil {
		return models.User{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.User{}, gorm.ErrRecordNotFound
	}

	return r.GetByID(ctx, id)
}
