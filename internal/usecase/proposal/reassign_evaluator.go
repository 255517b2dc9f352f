package proposal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/repository"
	domainsvc "github.com/ignatzorin/research-review/internal/domain/service"
)

type ReassignEvaluatorInput struct {
	ProposalID     uuid.UUID
	AssignmentID   uuid.UUID
	NewEvaluatorID uuid.UUID
	DueInDays      int
	Expected       *entity.StateToken
}

type ReassignEvaluatorUseCase struct {
	workflow   *Workflow
	evaluators repository.EvaluatorRepository
	engine     *domainsvc.AssignmentEngine
}

func NewReassignEvaluatorUseCase(workflow *Workflow, evaluators repository.EvaluatorRepository, engine *domainsvc.AssignmentEngine) *ReassignEvaluatorUseCase {
	return &ReassignEvaluatorUseCase{workflow: workflow, evaluators: evaluators, engine: engine}
}

func (uc *ReassignEvaluatorUseCase) Execute(ctx context.Context, actor entity.Actor, input ReassignEvaluatorInput) (*Result, error) {
	replacement, err := uc.evaluators.FindByID(ctx, input.NewEvaluatorID)
	if err != nil {
		return nil, uc.workflow.reject("reassign", input.ProposalID, actor, storageError(err, "не удалось загрузить эксперта"))
	}
	return uc.workflow.run(ctx, "reassign", input.ProposalID, input.Expected, actor, func(p *entity.Proposal, now time.Time) error {
		_, err := uc.engine.Reassign(p, input.AssignmentID, replacement, input.DueInDays, actor, now)
		return err
	})
}
