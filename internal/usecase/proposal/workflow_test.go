package proposal_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	domainsvc "github.com/ignatzorin/research-review/internal/domain/service"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
	"github.com/ignatzorin/research-review/internal/usecase/proposal"
)

func TestScenarioA_TwoApprovalsReachEndorsement(t *testing.T) {
	f := newFixture(t)
	evaluators := f.evaluators(t, 2)
	p := f.underEvaluation(t, evaluators)
	require.Equal(t, valueobject.ProposalStatusUnderEvaluation, p.Status)

	first := f.rate(t, p.ID, evaluators[0], valueobject.SuggestedApprove)
	assert.Equal(t, valueobject.ProposalStatusUnderEvaluation, first.Proposal.Status)
	assert.Equal(t, []entity.EventType{entity.EventRatingRecorded}, eventTypes(first.Events))

	second := f.rate(t, p.ID, evaluators[1], valueobject.SuggestedApprove)
	assert.Equal(t, valueobject.ProposalStatusEndorsementPending, second.Proposal.Status)
	assert.Equal(t, []entity.EventType{entity.EventRatingRecorded, entity.EventProposalStatusChanged}, eventTypes(second.Events))

	stored := f.reload(t, p.ID)
	assert.Len(t, stored.CurrentRatings(), 2)
	for _, a := range stored.CurrentAssignments() {
		assert.Equal(t, valueobject.AssignmentStatusCompleted, a.Status)
	}
	last := stored.Decisions[len(stored.Decisions)-1]
	assert.Equal(t, valueobject.GateEvaluation, last.Gate)
	assert.Equal(t, valueobject.DecisionApprove, last.Decision)
}

func TestScenarioB_ResubmitWithinWindowReturnsToRnD(t *testing.T) {
	f := newFixture(t)
	p := f.submit(t)

	res, err := f.uc.Decide.Execute(f.ctx, f.rnd, proposal.RecordDecisionInput{
		ProposalID:     p.ID,
		Gate:           valueobject.GateRnD,
		Decision:       valueobject.DecisionRevise,
		Remarks:        "уточните календарный план",
		RevisionWindow: "2_weeks",
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusRevisionRnD, res.Proposal.Status)

	f.clock.Advance(10 * day)
	response := "план уточнён"
	res, err = f.uc.Resubmit.Execute(f.ctx, f.proponent, proposal.ResubmitProposalInput{
		ProposalID:       p.ID,
		DocumentRef:      "documents/proposal-v2.pdf",
		BudgetLines:      []domainsvc.BudgetLineInput{{Source: "DOST", PS: 90000, MOOE: 40000, CO: 10000}},
		RevisionResponse: &response,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Proposal.DocumentVersion)
	assert.Equal(t, valueobject.ProposalStatusRnDReview, res.Proposal.Status)
	assert.Nil(t, res.Proposal.RevisionDeadline)

	stored := f.reload(t, p.ID)
	require.Len(t, stored.Versions, 2)
	assert.Equal(t, "GAA", stored.Versions[0].BudgetLines[0].Source)
	assert.Equal(t, "documents/proposal-v1.pdf", stored.Versions[0].DocumentRef)
	require.NotNil(t, stored.Versions[1].RevisionResponse)
	assert.Equal(t, "план уточнён", *stored.Versions[1].RevisionResponse)

	v1, err := f.uc.Ledger.Execute(f.ctx, f.proponent, p.ID, 1)
	require.NoError(t, err)
	assert.InDelta(t, 200000, v1.Totals.Total, 1e-9)
	v2, err := f.uc.Ledger.Execute(f.ctx, f.proponent, p.ID, 0)
	require.NoError(t, err)
	assert.InDelta(t, 140000, v2.Totals.Total, 1e-9)
}

func TestScenarioC_LateResubmitThenExpiry(t *testing.T) {
	f := newFixture(t)
	p := f.submit(t)
	f.decide(t, p.ID, f.rnd, valueobject.GateRnD, valueobject.DecisionRevise)

	f.clock.Advance(15 * day)
	_, err := f.uc.Resubmit.Execute(f.ctx, f.proponent, proposal.ResubmitProposalInput{
		ProposalID:  p.ID,
		DocumentRef: "documents/proposal-v2.pdf",
		BudgetLines: []domainsvc.BudgetLineInput{{Source: "DOST", PS: 1}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeRevisionWindowExpired))

	stored := f.reload(t, p.ID)
	assert.Equal(t, valueobject.ProposalStatusRevisionRnD, stored.Status)
	assert.Equal(t, 1, stored.DocumentVersion)

	sweep, err := f.uc.ExpireRevisions.Execute(f.ctx, entity.SystemActor())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p.ID}, sweep.ProposalIDs)
	assert.Equal(t, []entity.EventType{entity.EventProposalStatusChanged, entity.EventRevisionExpired}, eventTypes(sweep.Events))

	stored = f.reload(t, p.ID)
	assert.Equal(t, valueobject.ProposalStatusRejectedByRnD, stored.Status)
	assert.True(t, stored.Status.IsTerminal())

	again, err := f.uc.ExpireRevisions.Execute(f.ctx, entity.SystemActor())
	require.NoError(t, err)
	assert.Empty(t, again.ProposalIDs)
}

func TestScenarioD_OneReviseSendsBackToEvaluationRevision(t *testing.T) {
	f := newFixture(t)
	evaluators := f.evaluators(t, 3)
	p := f.underEvaluation(t, evaluators)

	f.rate(t, p.ID, evaluators[0], valueobject.SuggestedApprove)
	f.rate(t, p.ID, evaluators[1], valueobject.SuggestedRevise)
	res := f.rate(t, p.ID, evaluators[2], valueobject.SuggestedApprove)

	assert.Equal(t, valueobject.ProposalStatusRevisionEval, res.Proposal.Status)
	require.NotNil(t, res.Proposal.RevisionDeadline)
	assert.Equal(t, f.clock.Now().Add(14*day), *res.Proposal.RevisionDeadline)

	resubmitted, err := f.uc.Resubmit.Execute(f.ctx, f.proponent, proposal.ResubmitProposalInput{
		ProposalID:  p.ID,
		DocumentRef: "documents/proposal-v2.pdf",
		BudgetLines: []domainsvc.BudgetLineInput{{Source: "GAA", PS: 150000}},
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusEvaluatorAssignment, resubmitted.Proposal.Status)
	assert.Empty(t, resubmitted.Proposal.CurrentAssignments())
	assert.Empty(t, resubmitted.Proposal.CurrentRatings())
	assert.Len(t, resubmitted.Proposal.Ratings, 3, "ratings of version 1 are kept")
}

func TestDeclineCanCompleteQuorum(t *testing.T) {
	f := newFixture(t)
	evaluators := f.evaluators(t, 2)
	p := f.underEvaluation(t, evaluators)

	f.rate(t, p.ID, evaluators[0], valueobject.SuggestedReject)
	p = f.reload(t, p.ID)
	after := f.respond(t, p, evaluators[1], valueobject.AssignmentResponseDecline)

	assert.Equal(t, valueobject.ProposalStatusRejectedByEval, after.Status)
}

func TestRatingRequiresAcceptedAssignment(t *testing.T) {
	f := newFixture(t)
	evaluators := f.evaluators(t, 1)
	p := f.submit(t)
	f.decide(t, p.ID, f.rnd, valueobject.GateRnD, valueobject.DecisionEndorse)
	_, err := f.uc.Assign.Execute(f.ctx, f.rnd, proposal.AssignEvaluatorsInput{ProposalID: p.ID, Department: "science", EvaluatorIDs: []uuid.UUID{evaluators[0].ID}})
	require.NoError(t, err)

	_, err = f.uc.Rate.Execute(f.ctx, evaluators[0], ratingInput(p.ID, valueobject.SuggestedApprove))
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeInvalidTransition))

	_, err = f.uc.Rate.Execute(f.ctx, f.rnd, ratingInput(p.ID, valueobject.SuggestedApprove))
	assert.True(t, apperror.IsForbidden(err))
}

func TestRatingIsImmutable(t *testing.T) {
	f := newFixture(t)
	evaluators := f.evaluators(t, 2)
	p := f.underEvaluation(t, evaluators)
	f.rate(t, p.ID, evaluators[0], valueobject.SuggestedApprove)

	_, err := f.uc.Rate.Execute(f.ctx, evaluators[0], ratingInput(p.ID, valueobject.SuggestedReject))

	assert.True(t, apperror.IsCode(err, apperror.ErrCodeConflict))
	stored := f.reload(t, p.ID)
	require.Len(t, stored.CurrentRatings(), 1)
	assert.Equal(t, valueobject.SuggestedApprove, stored.CurrentRatings()[0].SuggestedDecision)
}

func TestBusyEvaluatorIsRejected(t *testing.T) {
	f := newFixture(t)
	evaluators := f.evaluators(t, 1)
	for i := 0; i < 2; i++ {
		f.underEvaluation(t, evaluators)
	}

	p := f.submit(t)
	f.decide(t, p.ID, f.rnd, valueobject.GateRnD, valueobject.DecisionEndorse)
	_, err := f.uc.Assign.Execute(f.ctx, f.rnd, proposal.AssignEvaluatorsInput{ProposalID: p.ID, Department: "science", EvaluatorIDs: []uuid.UUID{evaluators[0].ID}})

	assert.True(t, apperror.IsCode(err, apperror.ErrCodeCapacityExceeded))
	assert.Equal(t, valueobject.ProposalStatusEvaluatorAssignment, f.reload(t, p.ID).Status)
}

func TestStaleStateRejectsSecondDecision(t *testing.T) {
	f := newFixture(t)
	p := f.submit(t)
	token := p.Token()

	_, err := f.uc.Decide.Execute(f.ctx, f.rnd, proposal.RecordDecisionInput{
		ProposalID: p.ID, Gate: valueobject.GateRnD, Decision: valueobject.DecisionEndorse, Remarks: "в работу", Expected: &token,
	})
	require.NoError(t, err)

	other := entity.Actor{ID: uuid.New(), Role: valueobject.RoleRnDStaff}
	_, err = f.uc.Decide.Execute(f.ctx, other, proposal.RecordDecisionInput{
		ProposalID: p.ID, Gate: valueobject.GateRnD, Decision: valueobject.DecisionReject, Remarks: "отклонить", Expected: &token,
	})
	assert.True(t, apperror.IsStaleState(err))
	assert.Equal(t, valueobject.ProposalStatusEvaluatorAssignment, f.reload(t, p.ID).Status)
}

func TestConcurrentDecisionsOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	p := f.submit(t)
	token := p.Token()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kind := valueobject.DecisionEndorse
			if i%2 == 1 {
				kind = valueobject.DecisionReject
			}
			_, errs[i] = f.uc.Decide.Execute(f.ctx, f.rnd, proposal.RecordDecisionInput{
				ProposalID: p.ID, Gate: valueobject.GateRnD, Decision: kind, Remarks: "параллельно", Expected: &token,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperror.IsStaleState(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.reload(t, p.ID).Decisions, 1)
}

func TestConcurrentRatingsAllRecorded(t *testing.T) {
	f := newFixture(t)
	evaluators := f.evaluators(t, 6)
	p := f.underEvaluation(t, evaluators)

	var wg sync.WaitGroup
	errs := make([]error, len(evaluators))
	for i, ev := range evaluators {
		wg.Add(1)
		go func(i int, ev entity.Actor) {
			defer wg.Done()
			_, errs[i] = f.uc.Rate.Execute(f.ctx, ev, ratingInput(p.ID, valueobject.SuggestedApprove))
		}(i, ev)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	stored := f.reload(t, p.ID)
	assert.Len(t, stored.CurrentRatings(), 6)
	assert.Equal(t, valueobject.ProposalStatusEndorsementPending, stored.Status)

	transitions := 0
	for _, d := range stored.Decisions {
		if d.Gate == valueobject.GateEvaluation {
			transitions++
		}
	}
	assert.Equal(t, 1, transitions)
}

func TestFullPathToFunding(t *testing.T) {
	f := newFixture(t)
	evaluators := f.evaluators(t, 1)
	p := f.underEvaluation(t, evaluators)
	f.rate(t, p.ID, evaluators[0], valueobject.SuggestedApprove)

	f.decide(t, p.ID, f.committee, valueobject.GateEndorsement, valueobject.DecisionEndorse)
	funded := f.decide(t, p.ID, f.funding, valueobject.GateFunding, valueobject.DecisionApprove)

	assert.Equal(t, valueobject.ProposalStatusFunded, funded.Status)
	decisions, err := f.uc.Decisions.Execute(f.ctx, f.proponent, p.ID)
	require.NoError(t, err)
	gates := make([]valueobject.Gate, 0, len(decisions))
	for _, d := range decisions {
		gates = append(gates, d.Gate)
	}
	assert.Equal(t, []valueobject.Gate{valueobject.GateRnD, valueobject.GateEvaluation, valueobject.GateEndorsement, valueobject.GateFunding}, gates)

	_, err = f.uc.Decide.Execute(f.ctx, f.funding, proposal.RecordDecisionInput{
		ProposalID: p.ID, Gate: valueobject.GateFunding, Decision: valueobject.DecisionReject, Remarks: "передумали",
	})
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeInvalidTransition))
}

func TestDraftAndClaim(t *testing.T) {
	f := newFixture(t)
	res, err := f.uc.Create.Execute(f.ctx, f.proponent, proposal.CreateProposalInput{Title: "Черновик", Draft: true})
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusDraft, res.Proposal.Status)
	assert.Empty(t, res.Events)

	_, err = f.uc.Submit.Execute(f.ctx, f.proponent, res.Proposal.ID, nil)
	assert.True(t, apperror.IsValidation(err), "draft without document cannot be submitted")

	draft, err := f.uc.Create.Execute(f.ctx, f.proponent, proposal.CreateProposalInput{
		Title:       "Черновик с документом",
		DocumentRef: "documents/x.pdf",
		BudgetLines: []domainsvc.BudgetLineInput{{Source: "GAA", PS: 1}},
		Draft:       true,
	})
	require.NoError(t, err)

	_, err = f.uc.Submit.Execute(f.ctx, entity.Actor{ID: uuid.New(), Role: valueobject.RoleProponent}, draft.Proposal.ID, nil)
	assert.True(t, apperror.IsForbidden(err))

	submitted, err := f.uc.Submit.Execute(f.ctx, f.proponent, draft.Proposal.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusSubmitted, submitted.Proposal.Status)

	_, err = f.uc.Claim.Execute(f.ctx, f.committee, draft.Proposal.ID, nil)
	assert.True(t, apperror.IsForbidden(err))

	claimed, err := f.uc.Claim.Execute(f.ctx, f.rnd, draft.Proposal.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusRnDReview, claimed.Proposal.Status)
	require.NotNil(t, claimed.Proposal.ClaimedBy)
	assert.Equal(t, f.rnd.ID, *claimed.Proposal.ClaimedBy)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.Create.Execute(f.ctx, f.proponent, proposal.CreateProposalInput{Title: "Без бюджета", DocumentRef: "documents/x.pdf"})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.uc.Create.Execute(f.ctx, f.rnd, proposal.CreateProposalInput{
		Title: "Не заявитель", DocumentRef: "documents/x.pdf", BudgetLines: []domainsvc.BudgetLineInput{{Source: "GAA"}},
	})
	assert.True(t, apperror.IsForbidden(err))
}

func TestMarkOverdueAssignments(t *testing.T) {
	f := newFixture(t)
	evaluators := f.evaluators(t, 1)
	p := f.submit(t)
	f.decide(t, p.ID, f.rnd, valueobject.GateRnD, valueobject.DecisionEndorse)
	_, err := f.uc.Assign.Execute(f.ctx, f.rnd, proposal.AssignEvaluatorsInput{ProposalID: p.ID, Department: "science", EvaluatorIDs: []uuid.UUID{evaluators[0].ID}})
	require.NoError(t, err)

	_, err = f.uc.MarkOverdue.Execute(f.ctx, f.proponent)
	assert.True(t, apperror.IsForbidden(err))

	f.clock.Advance(4 * day)
	sweep, err := f.uc.MarkOverdue.Execute(f.ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p.ID}, sweep.ProposalIDs)
	assert.Equal(t, []entity.EventType{entity.EventAssignmentOverdue}, eventTypes(sweep.Events))

	stored := f.reload(t, p.ID)
	assert.Equal(t, valueobject.AssignmentStatusOverdue, stored.CurrentAssignments()[0].Status)

	accepted := f.respond(t, stored, evaluators[0], valueobject.AssignmentResponseAccept)
	assert.Equal(t, valueobject.AssignmentStatusAccepted, accepted.CurrentAssignments()[0].Status)
}

func TestReassignReplacesUnratedEvaluator(t *testing.T) {
	f := newFixture(t)
	evaluators := f.evaluators(t, 3)
	p := f.underEvaluation(t, evaluators[:2])
	f.rate(t, p.ID, evaluators[0], valueobject.SuggestedApprove)

	rated := p.ActiveAssignmentFor(evaluators[0].ID)
	_, err := f.uc.Reassign.Execute(f.ctx, f.rnd, proposal.ReassignEvaluatorInput{ProposalID: p.ID, AssignmentID: rated.ID, NewEvaluatorID: evaluators[2].ID})
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeInvalidTransition))

	pending := p.ActiveAssignmentFor(evaluators[1].ID)
	res, err := f.uc.Reassign.Execute(f.ctx, f.rnd, proposal.ReassignEvaluatorInput{ProposalID: p.ID, AssignmentID: pending.ID, NewEvaluatorID: evaluators[2].ID})
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProposalStatusUnderEvaluation, res.Proposal.Status)

	replaced := f.reload(t, p.ID)
	f.respond(t, replaced, evaluators[2], valueobject.AssignmentResponseAccept)
	final := f.rate(t, p.ID, evaluators[2], valueobject.SuggestedApprove)
	assert.Equal(t, valueobject.ProposalStatusEndorsementPending, final.Proposal.Status)
}

func TestVisibility(t *testing.T) {
	f := newFixture(t)
	p := f.submit(t)
	stranger := entity.Actor{ID: uuid.New(), Role: valueobject.RoleProponent}

	_, err := f.uc.Get.Execute(f.ctx, stranger, p.ID)
	assert.True(t, apperror.IsForbidden(err))

	items, total, err := f.uc.List.Execute(f.ctx, stranger, proposalFilter())
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	items, total, err = f.uc.List.Execute(f.ctx, f.committee, proposalFilter())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)

	_, err = f.uc.Get.Execute(f.ctx, f.rnd, uuid.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestPublishedEventsFollowCommits(t *testing.T) {
	f := newFixture(t)
	p := f.submit(t)
	_, err := f.uc.Decide.Execute(f.ctx, f.rnd, proposal.RecordDecisionInput{ProposalID: p.ID, Gate: valueobject.GateRnD, Decision: valueobject.DecisionEndorse, Remarks: " "})
	require.Error(t, err)

	assert.Equal(t, []entity.EventType{entity.EventProposalStatusChanged}, f.publisher.Types())
}

func eventTypes(events []entity.Event) []entity.EventType {
	types := make([]entity.EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}
