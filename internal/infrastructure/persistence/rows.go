package persistence

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
)

type proposalRow struct {
	ID                 uuid.UUID     `db:"id"`
	Title              string        `db:"title"`
	ProgramTitle       string        `db:"program_title"`
	Department         string        `db:"department"`
	ProponentID        uuid.UUID     `db:"proponent_id"`
	Status             string        `db:"status"`
	DocumentVersion    int           `db:"document_version"`
	RevisionDeadline   *time.Time    `db:"revision_deadline"`
	FundingDocumentRef *string       `db:"funding_document_ref"`
	ClaimedBy          uuid.NullUUID `db:"claimed_by"`
	CreatedAt          time.Time     `db:"created_at"`
	LastTransitionAt   time.Time     `db:"last_transition_at"`
}

func (r *proposalRow) toEntity() *entity.Proposal {
	p := &entity.Proposal{
		ID:                 r.ID,
		Title:              r.Title,
		ProgramTitle:       r.ProgramTitle,
		Department:         r.Department,
		ProponentID:        r.ProponentID,
		Status:             valueobject.ProposalStatus(r.Status),
		DocumentVersion:    r.DocumentVersion,
		RevisionDeadline:   utcPtr(r.RevisionDeadline),
		FundingDocumentRef: r.FundingDocumentRef,
		CreatedAt:          r.CreatedAt.UTC(),
		LastTransitionAt:   r.LastTransitionAt.UTC(),
	}
	if r.ClaimedBy.Valid {
		id := r.ClaimedBy.UUID
		p.ClaimedBy = &id
	}
	return p
}

type versionRow struct {
	ProposalID       uuid.UUID `db:"proposal_id"`
	Version          int       `db:"version"`
	DocumentRef      string    `db:"document_ref"`
	RevisionResponse *string   `db:"revision_response"`
	SubmittedAt      time.Time `db:"submitted_at"`
}

type budgetLineRow struct {
	ProposalID uuid.UUID `db:"proposal_id"`
	Version    int       `db:"version"`
	Position   int       `db:"position"`
	Source     string    `db:"source"`
	PS         float64   `db:"ps"`
	MOOE       float64   `db:"mooe"`
	CO         float64   `db:"co"`
}

type assignmentRow struct {
	ID              uuid.UUID  `db:"id"`
	ProposalID      uuid.UUID  `db:"proposal_id"`
	EvaluatorID     uuid.UUID  `db:"evaluator_id"`
	DocumentVersion int        `db:"document_version"`
	Department      string     `db:"department"`
	Status          string     `db:"status"`
	CreatedAt       time.Time  `db:"created_at"`
	RespondBy       time.Time  `db:"respond_by"`
	DueAt           time.Time  `db:"due_at"`
	RespondedAt     *time.Time `db:"responded_at"`
	AcceptedAt      *time.Time `db:"accepted_at"`
	Remarks         *string    `db:"remarks"`
}

func (r *assignmentRow) toEntity() *entity.EvaluatorAssignment {
	return &entity.EvaluatorAssignment{
		ID:              r.ID,
		ProposalID:      r.ProposalID,
		EvaluatorID:     r.EvaluatorID,
		DocumentVersion: r.DocumentVersion,
		Department:      r.Department,
		Status:          valueobject.AssignmentStatus(r.Status),
		CreatedAt:       r.CreatedAt.UTC(),
		RespondBy:       r.RespondBy.UTC(),
		DueAt:           r.DueAt.UTC(),
		RespondedAt:     utcPtr(r.RespondedAt),
		AcceptedAt:      utcPtr(r.AcceptedAt),
		Remarks:         r.Remarks,
	}
}

type ratingRow struct {
	ID                uuid.UUID `db:"id"`
	ProposalID        uuid.UUID `db:"proposal_id"`
	DocumentVersion   int       `db:"document_version"`
	EvaluatorID       uuid.UUID `db:"evaluator_id"`
	Objectives        int       `db:"objectives"`
	Methodology       int       `db:"methodology"`
	Budget            int       `db:"budget"`
	Timeline          int       `db:"timeline"`
	Comment           string    `db:"comment"`
	SuggestedDecision string    `db:"suggested_decision"`
	SubmittedAt       time.Time `db:"submitted_at"`
}

func (r *ratingRow) toEntity() entity.EvaluatorRating {
	return entity.EvaluatorRating{
		ID:              r.ID,
		ProposalID:      r.ProposalID,
		DocumentVersion: r.DocumentVersion,
		EvaluatorID:     r.EvaluatorID,
		Scores: entity.RatingScores{
			Objectives:  r.Objectives,
			Methodology: r.Methodology,
			Budget:      r.Budget,
			Timeline:    r.Timeline,
		},
		Comment:           r.Comment,
		SuggestedDecision: valueobject.SuggestedDecision(r.SuggestedDecision),
		SubmittedAt:       r.SubmittedAt.UTC(),
	}
}

type decisionRow struct {
	ID                 uuid.UUID  `db:"id"`
	ProposalID         uuid.UUID  `db:"proposal_id"`
	DocumentVersion    int        `db:"document_version"`
	Gate               string     `db:"gate"`
	Decision           string     `db:"decision"`
	Remarks            string     `db:"remarks"`
	RevisionDeadline   *time.Time `db:"revision_deadline"`
	FundingDocumentRef *string    `db:"funding_document_ref"`
	DecidedBy          uuid.UUID  `db:"decided_by"`
	DecidedRole        string     `db:"decided_role"`
	DecidedAt          time.Time  `db:"decided_at"`
}

func (r *decisionRow) toEntity() entity.Decision {
	return entity.Decision{
		ID:                 r.ID,
		ProposalID:         r.ProposalID,
		DocumentVersion:    r.DocumentVersion,
		Gate:               valueobject.Gate(r.Gate),
		Decision:           valueobject.DecisionKind(r.Decision),
		Remarks:            r.Remarks,
		RevisionDeadline:   utcPtr(r.RevisionDeadline),
		FundingDocumentRef: r.FundingDocumentRef,
		DecidedBy:          r.DecidedBy,
		DecidedRole:        valueobject.Role(r.DecidedRole),
		DecidedAt:          r.DecidedAt.UTC(),
	}
}

type evaluatorRow struct {
	ID              uuid.UUID      `db:"id"`
	Name            string         `db:"name"`
	Department      string         `db:"department"`
	Specialties     pq.StringArray `db:"specialties"`
	MaxWorkload     int            `db:"max_workload"`
	CurrentWorkload int            `db:"current_workload"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r *evaluatorRow) toEntity() *entity.Evaluator {
	return &entity.Evaluator{
		ID:              r.ID,
		Name:            r.Name,
		Department:      r.Department,
		Specialties:     []string(r.Specialties),
		MaxWorkload:     r.MaxWorkload,
		CurrentWorkload: r.CurrentWorkload,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

type notificationRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	EventID   uuid.UUID `db:"event_id"`
	Payload   []byte    `db:"payload"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *notificationRow) toEntity() entity.Notification {
	return entity.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		EventID:   r.EventID,
		Payload:   json.RawMessage(r.Payload),
		IsRead:    r.IsRead,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func uuidStrings(ids []uuid.UUID) pq.StringArray {
	result := make(pq.StringArray, len(ids))
	for i, id := range ids {
		result[i] = id.String()
	}
	return result
}

// isUniqueViolation проверяет нарушение уникального ограничения constraint.
// Пустой constraint означает любое ограничение.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && (constraint == "" || pqErr.Constraint == constraint)
}
