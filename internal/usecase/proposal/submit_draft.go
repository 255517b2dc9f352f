package proposal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
)

type SubmitDraftUseCase struct {
	workflow *Workflow
}

func NewSubmitDraftUseCase(workflow *Workflow) *SubmitDraftUseCase {
	return &SubmitDraftUseCase{workflow: workflow}
}

func (uc *SubmitDraftUseCase) Execute(ctx context.Context, actor entity.Actor, proposalID uuid.UUID, expected *entity.StateToken) (*Result, error) {
	return uc.workflow.run(ctx, "submit", proposalID, expected, actor, func(p *entity.Proposal, now time.Time) error {
		return p.Submit(actor, now)
	})
}
