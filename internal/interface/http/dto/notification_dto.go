package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
)

type NotificationResponse struct {
	ID        uuid.UUID       `json:"id"`
	EventID   uuid.UUID       `json:"event_id"`
	Payload   json.RawMessage `json:"payload"`
	IsRead    bool            `json:"is_read"`
	CreatedAt time.Time       `json:"created_at"`
}

type NotificationListResponse struct {
	Items  []NotificationResponse `json:"items"`
	Unread int                    `json:"unread"`
}

func ToNotificationResponses(items []entity.Notification) []NotificationResponse {
	responses := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		responses = append(responses, NotificationResponse{
			ID:        n.ID,
			EventID:   n.EventID,
			Payload:   n.Payload,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return responses
}

type SweepResponse struct {
	ProposalIDs []uuid.UUID `json:"proposal_ids"`
	Events      int         `json:"events"`
	Failed      int         `json:"failed"`
}
