package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/research-review/internal/domain/entity"
)

type NotificationRepository interface {
	// Create возвращает false, если уведомление по этому событию уже есть.
	Create(ctx context.Context, notification *entity.Notification) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}
