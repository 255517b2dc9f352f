package proposal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	domainsvc "github.com/ignatzorin/research-review/internal/domain/service"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

type RecordRatingInput struct {
	ProposalID        uuid.UUID
	Scores            entity.RatingScores
	Comment           string
	SuggestedDecision valueobject.SuggestedDecision
}

type RecordRatingUseCase struct {
	workflow   *Workflow
	aggregator *domainsvc.RatingAggregator
	revisions  *domainsvc.RevisionManager
}

func NewRecordRatingUseCase(workflow *Workflow, aggregator *domainsvc.RatingAggregator, revisions *domainsvc.RevisionManager) *RecordRatingUseCase {
	return &RecordRatingUseCase{workflow: workflow, aggregator: aggregator, revisions: revisions}
}

// Execute добавляет оценку эксперта отдельно от строки заявки, чтобы оценки
// разных экспертов не конфликтовали. Проверка кворума и итоговый переход
// выполняются уже под оптимистической блокировкой.
func (uc *RecordRatingUseCase) Execute(ctx context.Context, actor entity.Actor, input RecordRatingInput) (*Result, error) {
	w := uc.workflow
	p, err := w.load(ctx, input.ProposalID)
	if err != nil {
		return nil, w.reject("rate", input.ProposalID, actor, err)
	}

	now := w.Now()
	rating, assignment, err := uc.aggregator.NewRating(p, domainsvc.RatingInput{
		Scores:            input.Scores,
		Comment:           input.Comment,
		SuggestedDecision: input.SuggestedDecision,
	}, actor, now)
	if err != nil {
		return nil, w.reject("rate", p.ID, actor, err)
	}
	if err := w.proposals.AppendRating(ctx, rating, assignment.ID); err != nil {
		return nil, w.reject("rate", p.ID, actor, storageError(err, "не удалось сохранить оценку"))
	}

	recorded := entity.NewEvent(entity.EventRatingRecorded, p, actor, now, map[string]any{
		"rating_id":          rating.ID.String(),
		"assignment_id":      assignment.ID.String(),
		"mean_score":         rating.Scores.Mean(),
		"suggested_decision": string(rating.SuggestedDecision),
	}, actor.ID, p.ProponentID)
	w.emit(ctx, []entity.Event{recorded})

	result, err := uc.conclude(ctx, p.ID, p.Token(), actor)
	if err != nil {
		return nil, err
	}
	result.Events = append([]entity.Event{recorded}, result.Events...)
	return result, nil
}

// conclude сериализует завершение оценки: итог применяется только если заявка всё ещё
// ожидает оценки той же версии. Если итог уже применила параллельная операция,
// возвращается актуальное состояние.
func (uc *RecordRatingUseCase) conclude(ctx context.Context, id uuid.UUID, token entity.StateToken, actor entity.Actor) (*Result, error) {
	return concludeEvaluation(ctx, uc.workflow, uc.aggregator, uc.revisions, id, token, actor)
}

// concludeEvaluation проверяет кворум на свежем снимке заявки. Вызывается после
// фиксации оценки или отказа, поэтому последняя из параллельных операций видит
// изменения обеих.
func concludeEvaluation(ctx context.Context, w *Workflow, aggregator *domainsvc.RatingAggregator, revisions *domainsvc.RevisionManager, id uuid.UUID, token entity.StateToken, actor entity.Actor) (*Result, error) {
	result, err := w.run(ctx, "conclude", id, &token, actor, func(p *entity.Proposal, now time.Time) error {
		_, _, err := aggregator.Conclude(p, revisions, now)
		return err
	})
	if err == nil {
		return result, nil
	}
	if !apperror.IsStaleState(err) {
		return nil, err
	}
	p, loadErr := w.load(ctx, id)
	if loadErr != nil {
		return nil, loadErr
	}
	return &Result{Proposal: p}, nil
}
