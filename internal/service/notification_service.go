package service

import (
	"context"

	"taxengine/internal/model"
	"taxengine/internal/repository"

	"go.uber.org/zap"
)

const notificationListLimit = 100

type NotificationService interface {
	// Notify stores a notification and pushes it. A nil recipient broadcasts.
	// Failures are logged, never returned.
	Notify(ctx context.Context, recipient *model.TaxEngineUser, title, message, link string)
	List(ctx context.Context, user *model.TaxEngineUser, unreadOnly bool) ([]model.Notification, error)
	MarkRead(ctx context.Context, user *model.TaxEngineUser, id string) error
}

type notificationService struct {
	repo      repository.NotificationRepository
	publisher Publisher
	logger    *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, publisher Publisher, logger *zap.Logger) NotificationService {
	if publisher == nil {
		publisher = NopPublisher
	}
	return &notificationService{repo: repo, publisher: publisher, logger: logger}
}

func (s *notificationService) Notify(ctx context.Context, recipient *model.TaxEngineUser, title, message, link string) {
	n := &model.Notification{Title: title, Message: message, Link: link}
	n.RecipientID, n.RecipientUUID = actorRefs(recipient)

	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Warn("failed to store notification", zap.String("title", title), zap.Error(err))
		return
	}
	s.publisher.Publish(n.RecipientUUID, EventNotification, n)
}

func (s *notificationService) List(ctx context.Context, user *model.TaxEngineUser, unreadOnly bool) ([]model.Notification, error) {
	list, err := s.repo.ListFor(ctx, user.ID, unreadOnly, notificationListLimit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Notification{}
	}
	return list, nil
}

func (s *notificationService) MarkRead(ctx context.Context, user *model.TaxEngineUser, id string) error {
	uid, err := parseUUID("uuid", id)
	if err != nil {
		return err
	}
	n, err := s.repo.GetByUUID(ctx, uid)
	if err != nil {
		return lookupErr("Notification", err)
	}
	if n.RecipientID != nil && *n.RecipientID != user.ID {
		return notFound("Notification")
	}
	return s.repo.MarkRead(ctx, n.ID)
}
