package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
)

const (
	defaultNotificationPageSize = 50
	maxNotificationPageSize     = 100
)

// NotificationFilter selects one page of an account's inbox.
type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationRepository persists per-account notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID uint, filter NotificationFilter) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id, userID uint, at time.Time) (models.Notification, error)
	MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository constructs a repository backed by GORM.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) inbox(ctx context.Context, userID uint) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uint, filter NotificationFilter) ([]models.Notification, error) {
	limit := filter.Limit
	if limit <= 0 || limit > maxNotificationPageSize {
		limit = defaultNotificationPageSize
	}

	query := r.inbox(ctx, userID)
	if filter.UnreadOnly {
		query = query.Where("read = ?", false)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var notifications []models.Notification
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.inbox(ctx, userID).Where("read = ?", false).Count(&count).Error
	return count, err
}

// MarkRead flips one notification owned by userID. Reading an already read
// notification keeps its original read_at.
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uint, at time.Time) (models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&notification).Error; err != nil {
			return err
		}
		if notification.Read {
			return nil
		}

		if err := tx.Model(&notification).Updates(map[string]interface{}{"read": true, "read_at": at}).Error; err != nil {
			return err
		}
		notification.Read = true
		notification.ReadAt = &at
		return nil
	})
	if err != nil {
		return models.Notification{}, err
	}

	return notification, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	res := r.inbox(ctx, userID).
		Where("read = ?", false).
		Updates(map[string]interface{}{"read": true, "read_at": at})
	return res.RowsAffected, res.Error
}
