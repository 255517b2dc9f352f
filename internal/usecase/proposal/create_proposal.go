package proposal

import (
	"context"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	domainsvc "github.com/ignatzorin/research-review/internal/domain/service"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

type CreateProposalInput struct {
	Title        string
	ProgramTitle string
	Department   string
	DocumentRef  string
	BudgetLines  []domainsvc.BudgetLineInput
	Draft        bool
}

type CreateProposalUseCase struct {
	workflow *Workflow
}

func NewCreateProposalUseCase(workflow *Workflow) *CreateProposalUseCase {
	return &CreateProposalUseCase{workflow: workflow}
}

// Execute создаёт заявку версии 1: черновик или сразу поданную.
func (uc *CreateProposalUseCase) Execute(ctx context.Context, actor entity.Actor, input CreateProposalInput) (*Result, error) {
	w := uc.workflow
	if actor.Role != valueobject.RoleProponent {
		return nil, w.reject("create", actor.ID, actor, apperror.New(apperror.ErrCodeForbidden, "подать заявку может только заявитель"))
	}

	var lines []entity.BudgetLine
	if !input.Draft || len(input.BudgetLines) > 0 {
		var err error
		lines, err = domainsvc.BuildBudgetLines(input.BudgetLines)
		if err != nil {
			return nil, w.reject("create", actor.ID, actor, err)
		}
	}

	now := w.Now()
	p, err := entity.NewProposal(actor.ID, input.Title, input.ProgramTitle, input.Department, entity.DocumentVersion{
		DocumentRef: input.DocumentRef,
		BudgetLines: lines,
	}, input.Draft, now)
	if err != nil {
		return nil, w.reject("create", actor.ID, actor, err)
	}

	if err := w.proposals.Create(ctx, p); err != nil {
		return nil, w.reject("create", p.ID, actor, storageError(err, "не удалось создать заявку"))
	}
	events := p.PullEvents()
	w.emit(ctx, events)
	return &Result{Proposal: p, Events: events}, nil
}
