package services

import (
	"context"
	"errors"

	"cinesocial/internal/models"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = newError(KindNotFound, "Notification.NotFound", "the notification does not exist")

type NotificationFeedStore interface {
	ListNotifications(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Notification, int64, error)
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error
}

// NotificationPage 通知列表
type NotificationPage struct {
	Items       []models.Notification `json:"items"`
	Page        int                   `json:"page"`
	PageSize    int                   `json:"page_size"`
	TotalCount  int64                 `json:"total_count"`
	UnreadCount int64                 `json:"unread_count"`
}

type NotificationService struct {
	store NotificationFeedStore
}

func NewNotificationService(store NotificationFeedStore) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) List(ctx context.Context, who Identity, page, pageSize int) (NotificationPage, error) {
	userID, ok := callerOf(who)
	if !ok {
		return NotificationPage{}, ErrUnauthorized
	}
	if page < 1 || pageSize < 1 || pageSize > MaxPageSize {
		return NotificationPage{}, ErrInvalidPagination
	}
	items, total, err := s.store.ListNotifications(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return NotificationPage{}, storageError(err)
	}
	unread, err := s.store.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return NotificationPage{}, storageError(err)
	}
	return NotificationPage{Items: items, Page: page, PageSize: pageSize, TotalCount: total, UnreadCount: unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, who Identity, id uuid.UUID) error {
	userID, ok := callerOf(who)
	if !ok {
		return ErrUnauthorized
	}
	err := s.store.MarkNotificationRead(ctx, userID, id)
	if errors.Is(err, ErrRecordNotFound) {
		return ErrNotificationNotFound
	}
	return storageError(err)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, who Identity) error {
	userID, ok := callerOf(who)
	if !ok {
		return ErrUnauthorized
	}
	return storageError(s.store.MarkAllNotificationsRead(ctx, userID))
}
