package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

// EvaluatorAssignment связывает эксперта с конкретной версией заявки.
type EvaluatorAssignment struct {
	ID              uuid.UUID
	ProposalID      uuid.UUID
	EvaluatorID     uuid.UUID
	DocumentVersion int
	Department      string
	Status          valueobject.AssignmentStatus
	CreatedAt       time.Time
	RespondBy       time.Time
	DueAt           time.Time
	RespondedAt     *time.Time
	AcceptedAt      *time.Time
	Remarks         *string
}

func NewEvaluatorAssignment(proposalID, evaluatorID uuid.UUID, version int, department string, now, respondBy, dueAt time.Time) *EvaluatorAssignment {
	return &EvaluatorAssignment{
		ID:              uuid.New(),
		ProposalID:      proposalID,
		EvaluatorID:     evaluatorID,
		DocumentVersion: version,
		Department:      department,
		Status:          valueobject.AssignmentStatusPending,
		CreatedAt:       now,
		RespondBy:       respondBy,
		DueAt:           dueAt,
	}
}

func (a *EvaluatorAssignment) transition(to valueobject.AssignmentStatus, message string) error {
	if !a.Status.CanTransitionTo(to) {
		return apperror.New(apperror.ErrCodeInvalidTransition, message)
	}
	a.Status = to
	return nil
}

func (a *EvaluatorAssignment) Accept(now time.Time) error {
	if err := a.transition(valueobject.AssignmentStatusAccepted, "принять можно только ожидающее назначение"); err != nil {
		return err
	}
	a.RespondedAt = &now
	a.AcceptedAt = &now
	return nil
}

func (a *EvaluatorAssignment) Decline(now time.Time, remarks *string) error {
	if err := a.transition(valueobject.AssignmentStatusDeclined, "отказаться можно только от активного назначения"); err != nil {
		return err
	}
	a.RespondedAt = &now
	a.Remarks = remarks
	return nil
}

func (a *EvaluatorAssignment) Complete() error {
	if !a.CanRate() {
		return apperror.New(apperror.ErrCodeInvalidTransition, "оценку можно отправить только по принятому назначению")
	}
	return a.transition(valueobject.AssignmentStatusCompleted, "назначение уже завершено")
}

// MarkOverdue переводит назначение в просроченное. Ожидающее просрочено после срока ответа,
// принятое после срока оценки.
func (a *EvaluatorAssignment) MarkOverdue(now time.Time) bool {
	switch a.Status {
	case valueobject.AssignmentStatusPending:
		if !now.After(a.RespondBy) {
			return false
		}
	case valueobject.AssignmentStatusAccepted:
		if !now.After(a.DueAt) {
			return false
		}
	default:
		return false
	}
	a.Status = valueobject.AssignmentStatusOverdue
	return true
}

// CanRate: эксперт принял назначение, и оно ещё не завершено.
func (a *EvaluatorAssignment) CanRate() bool {
	switch a.Status {
	case valueobject.AssignmentStatusAccepted:
		return true
	case valueobject.AssignmentStatusOverdue:
		return a.AcceptedAt != nil
	}
	return false
}

func (a *EvaluatorAssignment) IsActive() bool {
	return a.Status.IsActive()
}

func (a *EvaluatorAssignment) IsDeclined() bool {
	return a.Status == valueobject.AssignmentStatusDeclined
}
