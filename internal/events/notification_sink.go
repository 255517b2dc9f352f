package events

import (
	"context"
	"fmt"

	"github.com/ignatzorin/research-review/internal/domain/entity"
)

// Notifier: сервис ленты уведомлений.
type Notifier interface {
	Deliver(ctx context.Context, event entity.Event) (int, error)
}

// NotificationSink сохраняет событие в ленты получателей.
type NotificationSink struct {
	notifier Notifier
}

func NewNotificationSink(notifier Notifier) *NotificationSink {
	return &NotificationSink{notifier: notifier}
}

func (s *NotificationSink) Name() string { return "notifications" }

// Deliver останавливается на первой ошибке: повтор безопасен, уже созданные записи не дублируются.
func (s *NotificationSink) Deliver(ctx context.Context, events []entity.Event) error {
	for _, e := range events {
		if _, err := s.notifier.Deliver(ctx, e); err != nil {
			return fmt.Errorf("notifications: event %s: %w", e.ID, err)
		}
	}
	return nil
}
