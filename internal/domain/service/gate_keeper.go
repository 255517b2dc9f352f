package service

import (
	"strings"
	"time"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

type GateDecisionInput struct {
	Gate               valueobject.Gate
	Decision           valueobject.DecisionKind
	Remarks            string
	RevisionWindow     string
	FundingDocumentRef string
}

// GateKeeper применяет ручные решения на шлюзах R&D, комитета и финансирования.
type GateKeeper struct {
	revisions *RevisionManager
}

func NewGateKeeper(revisions *RevisionManager) *GateKeeper {
	return &GateKeeper{revisions: revisions}
}

// Decide проверяет роль, статус и входные данные, затем применяет переход
// и добавляет запись в журнал решений. При любой ошибке заявка не меняется.
func (g *GateKeeper) Decide(p *entity.Proposal, in GateDecisionInput, actor entity.Actor, now time.Time) (*entity.Decision, error) {
	if in.Gate == valueobject.GateEvaluation {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "решение по оценке выводится из оценок экспертов")
	}
	rule, ok := in.Gate.RuleFor()
	if !ok {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "неизвестный шлюз %q", in.Gate)
	}
	outcome, ok := rule.Outcomes[in.Decision]
	if !ok {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "решение %q недопустимо на шлюзе %s", in.Decision, in.Gate)
	}
	if !rule.AllowsRole(actor.Role) {
		return nil, apperror.Newf(apperror.ErrCodeForbidden, "роль %s не может принимать решения на шлюзе %s", actor.Role, in.Gate)
	}
	if !rule.AllowsSource(p.Status) {
		return nil, apperror.Newf(apperror.ErrCodeInvalidTransition, "шлюз %s недоступен в статусе %s", in.Gate, p.Status)
	}

	decision, err := entity.NewDecision(p, in.Gate, in.Decision, in.Remarks, actor, now)
	if err != nil {
		return nil, err
	}
	fundingRef := strings.TrimSpace(in.FundingDocumentRef)
	if in.Gate == valueobject.GateFunding && in.Decision == valueobject.DecisionApprove && fundingRef == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "для одобрения финансирования нужен документ о финансировании")
	}
	if in.Gate == valueobject.GateFunding && fundingRef != "" {
		decision.FundingDocumentRef = &fundingRef
	}

	if origin, isRevision := outcome.RevisionOrigin(); isRevision {
		deadline, err := g.revisions.Open(p, origin, in.RevisionWindow, actor, now)
		if err != nil {
			return nil, err
		}
		decision.RevisionDeadline = &deadline
	} else {
		if err := p.TransitionTo(outcome, actor, now); err != nil {
			return nil, err
		}
	}
	if decision.FundingDocumentRef != nil && outcome == valueobject.ProposalStatusFunded {
		p.AttachFundingDocument(*decision.FundingDocumentRef)
	}
	p.AddDecision(*decision)
	return decision, nil
}
