package proposal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	domainsvc "github.com/ignatzorin/research-review/internal/domain/service"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
)

type RecordDecisionInput struct {
	ProposalID         uuid.UUID
	Gate               valueobject.Gate
	Decision           valueobject.DecisionKind
	Remarks            string
	RevisionWindow     string
	FundingDocumentRef string
	Expected           *entity.StateToken
}

type RecordDecisionUseCase struct {
	workflow *Workflow
	gates    *domainsvc.GateKeeper
}

func NewRecordDecisionUseCase(workflow *Workflow, gates *domainsvc.GateKeeper) *RecordDecisionUseCase {
	return &RecordDecisionUseCase{workflow: workflow, gates: gates}
}

func (uc *RecordDecisionUseCase) Execute(ctx context.Context, actor entity.Actor, input RecordDecisionInput) (*Result, error) {
	return uc.workflow.run(ctx, "decide", input.ProposalID, input.Expected, actor, func(p *entity.Proposal, now time.Time) error {
		_, err := uc.gates.Decide(p, domainsvc.GateDecisionInput{
			Gate:               input.Gate,
			Decision:           input.Decision,
			Remarks:            input.Remarks,
			RevisionWindow:     input.RevisionWindow,
			FundingDocumentRef: input.FundingDocumentRef,
		}, actor, now)
		return err
	})
}
