package repository

import (
	"context"

	"github.com/ignatzorin/research-review/internal/domain/entity"
)

// EventPublisher доставляет события после фиксации перехода. Ошибки доставки
// не возвращаются вызывающему и не откатывают состояние.
type EventPublisher interface {
	Publish(ctx context.Context, events []entity.Event)
}
