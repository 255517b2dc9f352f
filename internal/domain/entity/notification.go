package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification: событие, доставленное конкретному пользователю.
// Пара (EventID, UserID) уникальна, поэтому повторная доставка безопасна.
type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	EventID   uuid.UUID
	Payload   json.RawMessage
	IsRead    bool
	CreatedAt time.Time
}
