package proposal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/repository"
	domainsvc "github.com/ignatzorin/research-review/internal/domain/service"
)

type AssignEvaluatorsInput struct {
	ProposalID   uuid.UUID
	Department   string
	EvaluatorIDs []uuid.UUID
	DueInDays    int
	Expected     *entity.StateToken
}

type AssignEvaluatorsUseCase struct {
	workflow   *Workflow
	evaluators repository.EvaluatorRepository
	engine     *domainsvc.AssignmentEngine
}

func NewAssignEvaluatorsUseCase(workflow *Workflow, evaluators repository.EvaluatorRepository, engine *domainsvc.AssignmentEngine) *AssignEvaluatorsUseCase {
	return &AssignEvaluatorsUseCase{workflow: workflow, evaluators: evaluators, engine: engine}
}

// Execute назначает экспертов на текущую версию. Нагрузка экспертов читается
// до сохранения, поэтому два параллельных назначения одного эксперта могут
// превысить лимит на единицу.
func (uc *AssignEvaluatorsUseCase) Execute(ctx context.Context, actor entity.Actor, input AssignEvaluatorsInput) (*Result, error) {
	evaluators, err := uc.evaluators.FindByIDs(ctx, input.EvaluatorIDs)
	if err != nil {
		return nil, uc.workflow.reject("assign", input.ProposalID, actor, storageError(err, "не удалось загрузить экспертов"))
	}
	return uc.workflow.run(ctx, "assign", input.ProposalID, input.Expected, actor, func(p *entity.Proposal, now time.Time) error {
		_, err := uc.engine.Assign(p, input.Department, input.EvaluatorIDs, evaluators, input.DueInDays, actor, now)
		return err
	})
}
