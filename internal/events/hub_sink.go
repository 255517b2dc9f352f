package events

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
)

// Broadcaster: websocket-хаб.
type Broadcaster interface {
	BroadcastToUser(ctx context.Context, userID uuid.UUID, eventType string, data any) error
}

// HubSink отправляет событие подключённым получателям.
type HubSink struct {
	hub Broadcaster
}

func NewHubSink(hub Broadcaster) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Name() string { return "ws" }

func (s *HubSink) Deliver(ctx context.Context, events []entity.Event) error {
	var errs []error
	for _, e := range events {
		for _, userID := range e.Recipients {
			if err := s.hub.BroadcastToUser(ctx, userID, string(e.Type), e); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
