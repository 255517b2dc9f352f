package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

const (
	MinScore         = 1
	MaxScore         = 5
	MaxCommentLength = 2000
)

type RatingScores struct {
	Objectives  int
	Methodology int
	Budget      int
	Timeline    int
}

func (s RatingScores) Validate() error {
	for _, score := range []struct {
		name  string
		value int
	}{
		{"objectives", s.Objectives},
		{"methodology", s.Methodology},
		{"budget", s.Budget},
		{"timeline", s.Timeline},
	} {
		if score.value < MinScore || score.value > MaxScore {
			return apperror.Newf(apperror.ErrCodeValidation, "оценка %s должна быть от %d до %d", score.name, MinScore, MaxScore)
		}
	}
	return nil
}

// Mean: среднее по четырём критериям, от 1.0 до 5.0.
func (s RatingScores) Mean() float64 {
	return float64(s.Objectives+s.Methodology+s.Budget+s.Timeline) / 4
}

// EvaluatorRating неизменяема после отправки.
type EvaluatorRating struct {
	ID                uuid.UUID
	ProposalID        uuid.UUID
	DocumentVersion   int
	EvaluatorID       uuid.UUID
	Scores            RatingScores
	Comment           string
	SuggestedDecision valueobject.SuggestedDecision
	SubmittedAt       time.Time
}

func NewEvaluatorRating(proposalID uuid.UUID, version int, evaluatorID uuid.UUID, scores RatingScores, comment string, decision valueobject.SuggestedDecision, now time.Time) (*EvaluatorRating, error) {
	if err := scores.Validate(); err != nil {
		return nil, err
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "комментарий не должен превышать %d символов", MaxCommentLength)
	}
	if _, err := valueobject.NewSuggestedDecision(string(decision)); err != nil {
		return nil, err
	}
	return &EvaluatorRating{
		ID:                uuid.New(),
		ProposalID:        proposalID,
		DocumentVersion:   version,
		EvaluatorID:       evaluatorID,
		Scores:            scores,
		Comment:           comment,
		SuggestedDecision: decision,
		SubmittedAt:       now,
	}, nil
}
