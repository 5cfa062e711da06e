package repository

import (
	"context"

	"taxengine/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	GetByUUID(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	// ListFor returns the user's own notifications plus broadcasts, newest first
	ListFor(ctx context.Context, recipientID uint, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id uint) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return GetDB(ctx, r.db).Create(n).Error
}

func (r *notificationRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	var n model.Notification
	if err := GetDB(ctx, r.db).First(&n, "uuid = ?", id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) ListFor(ctx context.Context, recipientID uint, unreadOnly bool, limit int) ([]model.Notification, error) {
	var list []model.Notification
	query := GetDB(ctx, r.db).Where("recipient_id = ? OR recipient_id IS NULL", recipientID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	err := query.Order("created_at desc").Limit(limit).Find(&list).Error
	return list, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Model(&model.Notification{}).Where("id = ?", id).Update("is_read", true).Error
}
