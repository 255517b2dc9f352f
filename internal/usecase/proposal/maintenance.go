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

// SweepResult: итог фоновой задачи по всем затронутым заявкам.
type SweepResult struct {
	ProposalIDs []uuid.UUID
	Events      []entity.Event
	Failed      int
}

type ExpireRevisionsUseCase struct {
	workflow  *Workflow
	revisions *domainsvc.RevisionManager
}

func NewExpireRevisionsUseCase(workflow *Workflow, revisions *domainsvc.RevisionManager) *ExpireRevisionsUseCase {
	return &ExpireRevisionsUseCase{workflow: workflow, revisions: revisions}
}

// Execute закрывает доработки с истёкшим сроком. Конфликт на одной заявке
// не прерывает обработку остальных.
func (uc *ExpireRevisionsUseCase) Execute(ctx context.Context, actor entity.Actor) (*SweepResult, error) {
	w := uc.workflow
	if err := requireMaintainer(actor); err != nil {
		return nil, w.reject("expire_revisions", uuid.Nil, actor, err)
	}
	ids, err := w.proposals.FindExpiredRevisionIDs(ctx, w.Now())
	if err != nil {
		return nil, storageError(err, "не удалось найти просроченные доработки")
	}
	return sweep(ctx, w, "expire_revisions", ids, func(p *entity.Proposal, now time.Time) error {
		_, err := uc.revisions.Expire(p, now)
		return err
	}), nil
}

type MarkOverdueAssignmentsUseCase struct {
	workflow *Workflow
	engine   *domainsvc.AssignmentEngine
}

func NewMarkOverdueAssignmentsUseCase(workflow *Workflow, engine *domainsvc.AssignmentEngine) *MarkOverdueAssignmentsUseCase {
	return &MarkOverdueAssignmentsUseCase{workflow: workflow, engine: engine}
}

// Execute помечает просроченные назначения. Эскалация остаётся внешней задачей.
func (uc *MarkOverdueAssignmentsUseCase) Execute(ctx context.Context, actor entity.Actor) (*SweepResult, error) {
	w := uc.workflow
	if err := requireMaintainer(actor); err != nil {
		return nil, w.reject("mark_overdue", uuid.Nil, actor, err)
	}
	ids, err := w.proposals.FindOverdueAssignmentProposalIDs(ctx, w.Now())
	if err != nil {
		return nil, storageError(err, "не удалось найти просроченные назначения")
	}
	return sweep(ctx, w, "mark_overdue", ids, func(p *entity.Proposal, now time.Time) error {
		uc.engine.MarkOverdue(p, now)
		return nil
	}), nil
}

func sweep(ctx context.Context, w *Workflow, op string, ids []uuid.UUID, fn func(p *entity.Proposal, now time.Time) error) *SweepResult {
	result := &SweepResult{}
	system := entity.SystemActor()
	for i, id := range ids {
		if ctx.Err() != nil {
			result.Failed += len(ids) - i
			break
		}
		res, err := w.run(ctx, op, id, nil, system, fn)
		if apperror.IsStaleState(err) {
			// заявка изменилась между загрузкой и сохранением, повторяем на свежем снимке
			res, err = w.run(ctx, op, id, nil, system, fn)
		}
		if err != nil {
			result.Failed++
			w.log.WithError(err).WithField("proposal_id", id).Warn("sweep skipped proposal")
			continue
		}
		if len(res.Events) == 0 {
			continue
		}
		result.ProposalIDs = append(result.ProposalIDs, id)
		result.Events = append(result.Events, res.Events...)
	}
	return result
}

func requireMaintainer(actor entity.Actor) error {
	if actor.Role != valueobject.RoleSystem && actor.Role != valueobject.RoleAdmin {
		return apperror.New(apperror.ErrCodeForbidden, "фоновые задачи запускает только администратор или система")
	}
	return nil
}
