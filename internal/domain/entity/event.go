package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventProposalStatusChanged EventType = "proposal_status_changed"
	EventEvaluatorAssigned     EventType = "evaluator_assigned"
	EventRatingRecorded        EventType = "rating_recorded"
	EventRevisionOpened        EventType = "revision_opened"
	EventRevisionExpired       EventType = "revision_expired"
	EventAssignmentResponded   EventType = "assignment_responded"
	EventAssignmentOverdue     EventType = "assignment_overdue"
)

// Event: побочный эффект перехода. Публикуется только после фиксации состояния.
type Event struct {
	ID              uuid.UUID      `json:"id"`
	Type            EventType      `json:"type"`
	ProposalID      uuid.UUID      `json:"proposal_id"`
	DocumentVersion int            `json:"document_version"`
	OccurredAt      time.Time      `json:"occurred_at"`
	ActorID         uuid.UUID      `json:"actor_id"`
	ActorRole       string         `json:"actor_role"`
	Recipients      []uuid.UUID    `json:"recipients,omitempty"`
	Payload         map[string]any `json:"payload,omitempty"`
}

func NewEvent(eventType EventType, p *Proposal, actor Actor, now time.Time, payload map[string]any, recipients ...uuid.UUID) Event {
	return Event{
		ID:              uuid.New(),
		Type:            eventType,
		ProposalID:      p.ID,
		DocumentVersion: p.DocumentVersion,
		OccurredAt:      now,
		ActorID:         actor.ID,
		ActorRole:       string(actor.Role),
		Recipients:      uniqueRecipients(recipients),
		Payload:         payload,
	}
}

func uniqueRecipients(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	result := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
