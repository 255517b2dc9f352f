package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

type EvaluatorScore struct {
	EvaluatorID       uuid.UUID
	MeanScore         float64
	SuggestedDecision valueobject.SuggestedDecision
}

// Aggregate: итог оценки версии. Решение категориальное, средний балл
// сохраняется только для отчётов.
type Aggregate struct {
	Decision  valueobject.SuggestedDecision
	MeanScore float64
	Scores    []EvaluatorScore
}

type RatingInput struct {
	Scores            entity.RatingScores
	Comment           string
	SuggestedDecision valueobject.SuggestedDecision
}

type RatingAggregator struct{}

func NewRatingAggregator() *RatingAggregator {
	return &RatingAggregator{}
}

// Aggregate применяет правило «самая строгая рекомендация побеждает».
func (a *RatingAggregator) Aggregate(ratings []entity.EvaluatorRating) (Aggregate, error) {
	if len(ratings) == 0 {
		return Aggregate{}, apperror.New(apperror.ErrCodeValidation, "нет оценок для агрегации")
	}
	result := Aggregate{Decision: valueobject.SuggestedApprove, Scores: make([]EvaluatorScore, 0, len(ratings))}
	var sum float64
	for _, r := range ratings {
		mean := r.Scores.Mean()
		sum += mean
		result.Scores = append(result.Scores, EvaluatorScore{
			EvaluatorID:       r.EvaluatorID,
			MeanScore:         mean,
			SuggestedDecision: r.SuggestedDecision,
		})
		if r.SuggestedDecision.Severity() > result.Decision.Severity() {
			result.Decision = r.SuggestedDecision
		}
	}
	result.MeanScore = sum / float64(len(ratings))
	return result, nil
}

// QuorumReached: каждое неотклонённое назначение текущей версии имеет оценку,
// и есть хотя бы одна оценка.
func (a *RatingAggregator) QuorumReached(p *entity.Proposal) bool {
	rated := make(map[uuid.UUID]struct{})
	for _, r := range a.countedRatings(p) {
		rated[r.EvaluatorID] = struct{}{}
	}
	if len(rated) == 0 {
		return false
	}
	for _, as := range p.CurrentAssignments() {
		if as.IsDeclined() {
			continue
		}
		if _, ok := rated[as.EvaluatorID]; !ok {
			return false
		}
	}
	return true
}

// countedRatings возвращает оценки только неотклонённых экспертов.
func (a *RatingAggregator) countedRatings(p *entity.Proposal) []entity.EvaluatorRating {
	counted := make(map[uuid.UUID]struct{})
	for _, as := range p.CurrentAssignments() {
		if !as.IsDeclined() {
			counted[as.EvaluatorID] = struct{}{}
		}
	}
	var result []entity.EvaluatorRating
	for _, r := range p.CurrentRatings() {
		if _, ok := counted[r.EvaluatorID]; ok {
			result = append(result, r)
		}
	}
	return result
}

// NewRating проверяет, что эксперт может оценить текущую версию, и создаёт оценку.
func (a *RatingAggregator) NewRating(p *entity.Proposal, in RatingInput, actor entity.Actor, now time.Time) (*entity.EvaluatorRating, *entity.EvaluatorAssignment, error) {
	if actor.Role != valueobject.RoleEvaluator {
		return nil, nil, apperror.New(apperror.ErrCodeForbidden, "оценку может отправить только эксперт")
	}
	if err := p.RequireStatus(valueobject.ProposalStatusUnderEvaluation); err != nil {
		return nil, nil, err
	}
	if p.HasRated(actor.ID, p.DocumentVersion) {
		return nil, nil, apperror.ErrAlreadyRated
	}
	assignment := p.ActiveAssignmentFor(actor.ID)
	if assignment == nil {
		return nil, nil, apperror.New(apperror.ErrCodeForbidden, "эксперт не назначен на эту версию заявки")
	}
	if !assignment.CanRate() {
		return nil, nil, apperror.New(apperror.ErrCodeInvalidTransition, "сначала примите назначение")
	}
	rating, err := entity.NewEvaluatorRating(p.ID, p.DocumentVersion, actor.ID, in.Scores, in.Comment, in.SuggestedDecision, now)
	if err != nil {
		return nil, nil, err
	}
	return rating, assignment, nil
}

// Conclude переводит заявку по итогам оценки, если набран кворум.
// Возвращает false, если оценка ещё не завершена.
func (a *RatingAggregator) Conclude(p *entity.Proposal, revisions *RevisionManager, now time.Time) (bool, *Aggregate, error) {
	if p.Status != valueobject.ProposalStatusUnderEvaluation || !a.QuorumReached(p) {
		return false, nil, nil
	}
	agg, err := a.Aggregate(a.countedRatings(p))
	if err != nil {
		return false, nil, err
	}

	actor := entity.SystemActor()
	remarks := fmt.Sprintf("итог оценки: %s, средний балл %.2f по %d оценкам", agg.Decision, agg.MeanScore, len(agg.Scores))
	decision, err := entity.NewDecision(p, valueobject.GateEvaluation, evaluationDecision(agg.Decision), remarks, actor, now)
	if err != nil {
		return false, nil, err
	}

	switch agg.Decision {
	case valueobject.SuggestedReject:
		err = p.TransitionTo(valueobject.ProposalStatusRejectedByEval, actor, now)
	case valueobject.SuggestedRevise:
		var deadline time.Time
		deadline, err = revisions.Open(p, valueobject.GateEvaluation, "", actor, now)
		decision.RevisionDeadline = &deadline
	default:
		err = p.TransitionTo(valueobject.ProposalStatusEndorsementPending, actor, now)
	}
	if err != nil {
		return false, nil, err
	}
	p.AddDecision(*decision)
	return true, &agg, nil
}

func evaluationDecision(d valueobject.SuggestedDecision) valueobject.DecisionKind {
	switch d {
	case valueobject.SuggestedReject:
		return valueobject.DecisionReject
	case valueobject.SuggestedRevise:
		return valueobject.DecisionRevise
	default:
		return valueobject.DecisionApprove
	}
}
