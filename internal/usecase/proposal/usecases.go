package proposal

import (
	"github.com/ignatzorin/research-review/internal/domain/repository"
	domainsvc "github.com/ignatzorin/research-review/internal/domain/service"
)

type Dependencies struct {
	Proposals  repository.ProposalRepository
	Evaluators repository.EvaluatorRepository
	Publisher  repository.EventPublisher
	Metrics    Metrics
	Clock      Clock
	Revisions  *domainsvc.RevisionManager
	Engine     *domainsvc.AssignmentEngine
}

// UseCases собирает все операции над заявками.
type UseCases struct {
	Create          *CreateProposalUseCase
	Submit          *SubmitDraftUseCase
	Claim           *ClaimReviewUseCase
	Decide          *RecordDecisionUseCase
	Assign          *AssignEvaluatorsUseCase
	Respond         *RespondAssignmentUseCase
	Reassign        *ReassignEvaluatorUseCase
	Rate            *RecordRatingUseCase
	Resubmit        *ResubmitProposalUseCase
	ExpireRevisions *ExpireRevisionsUseCase
	MarkOverdue     *MarkOverdueAssignmentsUseCase
	Get             *GetProposalUseCase
	List            *ListProposalsUseCase
	Ledger          *GetBudgetLedgerUseCase
	Decisions       *ListDecisionsUseCase
}

func NewUseCases(deps Dependencies) *UseCases {
	workflow := NewWorkflow(deps.Proposals, deps.Publisher, deps.Metrics, deps.Clock)
	aggregator := domainsvc.NewRatingAggregator()
	gates := domainsvc.NewGateKeeper(deps.Revisions)

	return &UseCases{
		Create:          NewCreateProposalUseCase(workflow),
		Submit:          NewSubmitDraftUseCase(workflow),
		Claim:           NewClaimReviewUseCase(workflow),
		Decide:          NewRecordDecisionUseCase(workflow, gates),
		Assign:          NewAssignEvaluatorsUseCase(workflow, deps.Evaluators, deps.Engine),
		Respond:         NewRespondAssignmentUseCase(workflow, deps.Engine, aggregator, deps.Revisions),
		Reassign:        NewReassignEvaluatorUseCase(workflow, deps.Evaluators, deps.Engine),
		Rate:            NewRecordRatingUseCase(workflow, aggregator, deps.Revisions),
		Resubmit:        NewResubmitProposalUseCase(workflow, deps.Revisions),
		ExpireRevisions: NewExpireRevisionsUseCase(workflow, deps.Revisions),
		MarkOverdue:     NewMarkOverdueAssignmentsUseCase(workflow, deps.Engine),
		Get:             NewGetProposalUseCase(deps.Proposals),
		List:            NewListProposalsUseCase(deps.Proposals),
		Ledger:          NewGetBudgetLedgerUseCase(deps.Proposals),
		Decisions:       NewListDecisionsUseCase(deps.Proposals),
	}
}
