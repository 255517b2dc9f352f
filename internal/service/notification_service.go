package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/repository"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

// NotificationService сохраняет события в ленты получателей и отдаёт ленту пользователю.
type NotificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// Deliver создаёт по уведомлению на каждого получателя события.
// Повторная доставка того же события ничего не дублирует. Возвращает число новых записей.
func (s *NotificationService) Deliver(ctx context.Context, event entity.Event) (int, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("notification service: marshal payload: %w", err)
	}

	created := 0
	for _, userID := range event.Recipients {
		n := &entity.Notification{
			UserID:    userID,
			EventID:   event.ID,
			Payload:   payload,
			CreatedAt: event.OccurredAt,
		}
		inserted, err := s.repo.Create(ctx, n)
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, nil
}

// ListNotifications возвращает ленту пользователя, limit ограничен сотней.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]entity.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead отмечает уведомление прочитанным. Чужое уведомление недоступно.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return apperror.New(apperror.ErrCodeForbidden, "у вас нет прав на это уведомление")
	}
	return s.repo.MarkAsRead(ctx, id)
}

func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
