package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

const MaxRemarksLength = 2000

// Decision: запись журнала решений по шлюзам.
type Decision struct {
	ID                 uuid.UUID
	ProposalID         uuid.UUID
	DocumentVersion    int
	Gate               valueobject.Gate
	Decision           valueobject.DecisionKind
	Remarks            string
	RevisionDeadline   *time.Time
	FundingDocumentRef *string
	DecidedBy          uuid.UUID
	DecidedRole        valueobject.Role
	DecidedAt          time.Time
}

// ValidateRemarks проверяет обязательное обоснование решения.
func ValidateRemarks(remarks string) (string, error) {
	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		return "", apperror.New(apperror.ErrCodeValidation, "обоснование решения обязательно")
	}
	if utf8.RuneCountInString(remarks) > MaxRemarksLength {
		return "", apperror.Newf(apperror.ErrCodeValidation, "обоснование не должно превышать %d символов", MaxRemarksLength)
	}
	return remarks, nil
}

func NewDecision(p *Proposal, gate valueobject.Gate, kind valueobject.DecisionKind, remarks string, actor Actor, now time.Time) (*Decision, error) {
	remarks, err := ValidateRemarks(remarks)
	if err != nil {
		return nil, err
	}
	return &Decision{
		ID:              uuid.New(),
		ProposalID:      p.ID,
		DocumentVersion: p.DocumentVersion,
		Gate:            gate,
		Decision:        kind,
		Remarks:         remarks,
		DecidedBy:       actor.ID,
		DecidedRole:     actor.Role,
		DecidedAt:       now,
	}, nil
}
