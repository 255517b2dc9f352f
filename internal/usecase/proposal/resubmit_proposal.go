package proposal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	domainsvc "github.com/ignatzorin/research-review/internal/domain/service"
)

type ResubmitProposalInput struct {
	ProposalID       uuid.UUID
	DocumentRef      string
	BudgetLines      []domainsvc.BudgetLineInput
	RevisionResponse *string
	Expected         *entity.StateToken
}

type ResubmitProposalUseCase struct {
	workflow  *Workflow
	revisions *domainsvc.RevisionManager
}

func NewResubmitProposalUseCase(workflow *Workflow, revisions *domainsvc.RevisionManager) *ResubmitProposalUseCase {
	return &ResubmitProposalUseCase{workflow: workflow, revisions: revisions}
}

// Execute принимает новую версию. Просроченная доработка отклоняется без
// изменения статуса, закрывает её фоновая задача.
func (uc *ResubmitProposalUseCase) Execute(ctx context.Context, actor entity.Actor, input ResubmitProposalInput) (*Result, error) {
	return uc.workflow.run(ctx, "resubmit", input.ProposalID, input.Expected, actor, func(p *entity.Proposal, now time.Time) error {
		return uc.revisions.Resubmit(p, domainsvc.ResubmitInput{
			BudgetLines:      input.BudgetLines,
			DocumentRef:      input.DocumentRef,
			RevisionResponse: input.RevisionResponse,
		}, actor, now)
	})
}
