package proposal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	domainsvc "github.com/ignatzorin/research-review/internal/domain/service"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
)

type RespondAssignmentInput struct {
	ProposalID   uuid.UUID
	AssignmentID uuid.UUID
	Response     valueobject.AssignmentResponse
	Remarks      *string
	Expected     *entity.StateToken
}

type RespondAssignmentUseCase struct {
	workflow   *Workflow
	engine     *domainsvc.AssignmentEngine
	aggregator *domainsvc.RatingAggregator
	revisions  *domainsvc.RevisionManager
}

func NewRespondAssignmentUseCase(workflow *Workflow, engine *domainsvc.AssignmentEngine, aggregator *domainsvc.RatingAggregator, revisions *domainsvc.RevisionManager) *RespondAssignmentUseCase {
	return &RespondAssignmentUseCase{workflow: workflow, engine: engine, aggregator: aggregator, revisions: revisions}
}

// Execute фиксирует ответ эксперта. Отказ может завершить кворум: итог оценки
// применяется отдельным шагом после фиксации отказа.
func (uc *RespondAssignmentUseCase) Execute(ctx context.Context, actor entity.Actor, input RespondAssignmentInput) (*Result, error) {
	result, err := uc.workflow.run(ctx, "respond", input.ProposalID, input.Expected, actor, func(p *entity.Proposal, now time.Time) error {
		_, err := uc.engine.Respond(p, input.AssignmentID, input.Response, input.Remarks, actor, now)
		return err
	})
	if err != nil || input.Response != valueobject.AssignmentResponseDecline {
		return result, err
	}

	concluded, err := concludeEvaluation(ctx, uc.workflow, uc.aggregator, uc.revisions, input.ProposalID, result.Proposal.Token(), actor)
	if err != nil {
		return nil, err
	}
	concluded.Events = append(result.Events, concluded.Events...)
	return concluded, nil
}
