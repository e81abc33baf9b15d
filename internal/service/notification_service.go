package service

import (
	"context"

	"damara/internal/models"
	"damara/internal/observability"
	"damara/internal/repository"
)

// Notice is a notification about to be stored and published.
type Notice struct {
	UserID string
	Type   string
	Title  string
	Body   string
	PostID string
}

type NotificationService struct {
	repo      repository.NotificationRepository
	publisher Publisher
}

func NewNotificationService(repo repository.NotificationRepository, publisher Publisher) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher}
}

// Notify stores n and publishes it on the user's channel. Failures are
// logged and never reach the caller.
func (s *NotificationService) Notify(ctx context.Context, n Notice) {
	if s == nil || n.UserID == "" {
		return
	}
	record := &models.Notification{
		UserID: n.UserID,
		Type:   n.Type,
		Title:  n.Title,
		Body:   n.Body,
		PostID: n.PostID,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		observability.Logger.WarnContext(ctx, "failed to store notification",
			"user_id", n.UserID, "type", n.Type, "error", err)
		return
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishUser(ctx, n.UserID, record); err != nil {
		observability.Logger.WarnContext(ctx, "failed to publish notification",
			"user_id", n.UserID, "type", n.Type, "error", err)
	}
}

func (s *NotificationService) List(ctx context.Context, userID string, limit, offset int, unreadOnly bool) ([]*models.Notification, error) {
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, models.NewValidationError("userId is required")
	}
	return s.repo.UnreadCount(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, models.NewValidationError("userId is required")
	}
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	return s.repo.Delete(ctx, id, userID)
}
