package proposal

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/repository"
	domainsvc "github.com/ignatzorin/research-review/internal/domain/service"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

// canView: заявитель видит свои заявки, эксперт назначенные ему,
// остальные роли: все.
func canView(p *entity.Proposal, actor entity.Actor) bool {
	switch actor.Role {
	case valueobject.RoleProponent:
		return p.IsOwnedBy(actor.ID)
	case valueobject.RoleEvaluator:
		for _, a := range p.Assignments {
			if a.EvaluatorID == actor.ID {
				return true
			}
		}
		return false
	}
	return actor.Role.IsValid()
}

type GetProposalUseCase struct {
	proposals repository.ProposalRepository
}

func NewGetProposalUseCase(proposals repository.ProposalRepository) *GetProposalUseCase {
	return &GetProposalUseCase{proposals: proposals}
}

func (uc *GetProposalUseCase) Execute(ctx context.Context, actor entity.Actor, id uuid.UUID) (*entity.Proposal, error) {
	p, err := uc.proposals.FindByID(ctx, id)
	if err != nil {
		return nil, storageError(err, "не удалось загрузить заявку")
	}
	if !canView(p, actor) {
		return nil, apperror.ErrForbidden
	}
	return p, nil
}

type ListProposalsUseCase struct {
	proposals repository.ProposalRepository
}

func NewListProposalsUseCase(proposals repository.ProposalRepository) *ListProposalsUseCase {
	return &ListProposalsUseCase{proposals: proposals}
}

// Execute сужает фильтр по роли: заявитель получает только свои заявки,
// эксперт: только назначенные.
func (uc *ListProposalsUseCase) Execute(ctx context.Context, actor entity.Actor, filter repository.ProposalFilter) ([]*entity.Proposal, int, error) {
	switch actor.Role {
	case valueobject.RoleProponent:
		id := actor.ID
		filter.ProponentID = &id
	case valueobject.RoleEvaluator:
		id := actor.ID
		filter.EvaluatorID = &id
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	items, total, err := uc.proposals.List(ctx, filter)
	if err != nil {
		return nil, 0, storageError(err, "не удалось получить список заявок")
	}
	return items, total, nil
}

type GetBudgetLedgerUseCase struct {
	get *GetProposalUseCase
}

func NewGetBudgetLedgerUseCase(proposals repository.ProposalRepository) *GetBudgetLedgerUseCase {
	return &GetBudgetLedgerUseCase{get: NewGetProposalUseCase(proposals)}
}

// Execute возвращает бюджет версии; version=0 означает текущую версию.
func (uc *GetBudgetLedgerUseCase) Execute(ctx context.Context, actor entity.Actor, id uuid.UUID, version int) (*domainsvc.Ledger, error) {
	p, err := uc.get.Execute(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	ledger, err := domainsvc.BuildLedger(p, version)
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

type ListDecisionsUseCase struct {
	get *GetProposalUseCase
}

func NewListDecisionsUseCase(proposals repository.ProposalRepository) *ListDecisionsUseCase {
	return &ListDecisionsUseCase{get: NewGetProposalUseCase(proposals)}
}

func (uc *ListDecisionsUseCase) Execute(ctx context.Context, actor entity.Actor, id uuid.UUID) ([]entity.Decision, error) {
	p, err := uc.get.Execute(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return p.Decisions, nil
}
