package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/service"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

func proposalAwaitingAssignment(t *testing.T) *entity.Proposal {
	t.Helper()
	p, _ := newSubmittedProposal(t)
	moveTo(t, service.NewGateKeeper(mustRevisions(t)), p, valueobject.ProposalStatusEvaluatorAssignment)
	return p
}

func TestAssignmentEngine_Assign(t *testing.T) {
	engine := service.NewAssignmentEngine(service.DefaultAssignmentPolicy())
	p := proposalAwaitingAssignment(t)
	a, b := newEvaluator(t, "engineering", 3, 0), newEvaluator(t, "Engineering", 3, 2)

	created, err := engine.Assign(p, "engineering", ids(a, b), index(a, b), 0, staff(), baseTime)

	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, valueobject.ProposalStatusUnderEvaluation, p.Status)
	for _, as := range created {
		assert.Equal(t, valueobject.AssignmentStatusPending, as.Status)
		assert.Equal(t, 1, as.DocumentVersion)
		assert.Equal(t, baseTime.Add(72*time.Hour), as.RespondBy)
		assert.Equal(t, baseTime.AddDate(0, 0, 14), as.DueAt)
	}
	assert.Equal(t, []entity.EventType{
		entity.EventEvaluatorAssigned,
		entity.EventEvaluatorAssigned,
		entity.EventProposalStatusChanged,
	}, eventTypes(p.PullEvents()))
}

func TestAssignmentEngine_BusyEvaluatorIsCapacityExceeded(t *testing.T) {
	engine := service.NewAssignmentEngine(service.DefaultAssignmentPolicy())

	for _, workload := range []int{2, 3, 7} {
		p := proposalAwaitingAssignment(t)
		free, busy := newEvaluator(t, "engineering", 5, 0), newEvaluator(t, "engineering", 2, workload)

		_, err := engine.Assign(p, "engineering", ids(free, busy), index(free, busy), 0, staff(), baseTime)

		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.ErrCodeCapacityExceeded))
		assert.Empty(t, p.Assignments, "assignments must be all-or-nothing")
		assert.Equal(t, valueobject.ProposalStatusEvaluatorAssignment, p.Status)
	}
}

func TestAssignmentEngine_Rejections(t *testing.T) {
	engine := service.NewAssignmentEngine(service.DefaultAssignmentPolicy())
	ev := newEvaluator(t, "engineering", 3, 0)
	other := newEvaluator(t, "agriculture", 3, 0)

	cases := []struct {
		name  string
		ids   []uuid.UUID
		dept  string
		due   int
		actor entity.Actor
		code  apperror.ErrorCode
	}{
		{"empty list", nil, "engineering", 0, staff(), apperror.ErrCodeValidation},
		{"department mismatch", ids(other), "engineering", 0, staff(), apperror.ErrCodeValidation},
		{"duplicate in request", ids(ev, ev), "engineering", 0, staff(), apperror.ErrCodeDuplicateAssignment},
		{"unknown evaluator", []uuid.UUID{uuid.New()}, "engineering", 0, staff(), apperror.ErrCodeNotFound},
		{"due too far", ids(ev), "engineering", 91, staff(), apperror.ErrCodeValidation},
		{"not staff", ids(ev), "engineering", 0, evaluatorActor(ev.ID), apperror.ErrCodeForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := proposalAwaitingAssignment(t)
			_, err := engine.Assign(p, tc.dept, tc.ids, index(ev, other), tc.due, tc.actor, baseTime)
			require.Error(t, err)
			assert.Equal(t, tc.code, apperror.CodeOf(err))
		})
	}
}

func TestAssignmentEngine_RespondOnlyByAssignee(t *testing.T) {
	engine := service.NewAssignmentEngine(service.DefaultAssignmentPolicy())
	p := proposalAwaitingAssignment(t)
	ev := newEvaluator(t, "engineering", 3, 0)
	created, err := engine.Assign(p, "engineering", ids(ev), index(ev), 0, staff(), baseTime)
	require.NoError(t, err)

	_, err = engine.Respond(p, created[0].ID, valueobject.AssignmentResponseAccept, nil, evaluatorActor(uuid.New()), baseTime)
	assert.True(t, apperror.IsForbidden(err))

	a, err := engine.Respond(p, created[0].ID, valueobject.AssignmentResponseDecline, nil, evaluatorActor(ev.ID), baseTime)
	require.NoError(t, err)
	assert.Equal(t, valueobject.AssignmentStatusDeclined, a.Status)

	_, err = engine.Respond(p, created[0].ID, valueobject.AssignmentResponseAccept, nil, evaluatorActor(ev.ID), baseTime)
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeInvalidTransition))
}

func TestAssignmentEngine_ReassignBlockedAfterRating(t *testing.T) {
	engine := service.NewAssignmentEngine(service.DefaultAssignmentPolicy())
	p := proposalAwaitingAssignment(t)
	ev, spare := newEvaluator(t, "engineering", 3, 0), newEvaluator(t, "engineering", 3, 0)
	created, err := engine.Assign(p, "engineering", ids(ev), index(ev), 0, staff(), baseTime)
	require.NoError(t, err)
	_, err = engine.Respond(p, created[0].ID, valueobject.AssignmentResponseAccept, nil, evaluatorActor(ev.ID), baseTime)
	require.NoError(t, err)

	rating, assignment, err := service.NewRatingAggregator().NewRating(p, service.RatingInput{
		Scores:            entity.RatingScores{Objectives: 4, Methodology: 4, Budget: 4, Timeline: 4},
		SuggestedDecision: valueobject.SuggestedApprove,
	}, evaluatorActor(ev.ID), baseTime)
	require.NoError(t, err)
	require.NoError(t, assignment.Complete())
	p.Ratings = append(p.Ratings, *rating)

	_, err = engine.Reassign(p, created[0].ID, spare, 0, staff(), baseTime)
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeInvalidTransition))
}

func TestAssignmentEngine_Reassign(t *testing.T) {
	engine := service.NewAssignmentEngine(service.DefaultAssignmentPolicy())
	p := proposalAwaitingAssignment(t)
	ev, spare := newEvaluator(t, "engineering", 3, 0), newEvaluator(t, "engineering", 3, 0)
	created, err := engine.Assign(p, "engineering", ids(ev), index(ev), 0, staff(), baseTime)
	require.NoError(t, err)

	replacement, err := engine.Reassign(p, created[0].ID, spare, 0, staff(), baseTime)

	require.NoError(t, err)
	assert.Equal(t, valueobject.AssignmentStatusDeclined, created[0].Status)
	assert.Equal(t, valueobject.AssignmentStatusPending, replacement.Status)
	assert.Equal(t, spare.ID, replacement.EvaluatorID)
	assert.Len(t, p.CurrentAssignments(), 2)
}

func TestAssignmentEngine_MarkOverdue(t *testing.T) {
	engine := service.NewAssignmentEngine(service.AssignmentPolicy{ResponseSLA: 24 * time.Hour, DefaultDueDays: 5, MaxDueDays: 90})
	p := proposalAwaitingAssignment(t)
	silent, accepted := newEvaluator(t, "engineering", 3, 0), newEvaluator(t, "engineering", 3, 0)
	created, err := engine.Assign(p, "engineering", ids(silent, accepted), index(silent, accepted), 0, staff(), baseTime)
	require.NoError(t, err)
	_, err = engine.Respond(p, created[1].ID, valueobject.AssignmentResponseAccept, nil, evaluatorActor(accepted.ID), baseTime)
	require.NoError(t, err)
	p.PullEvents()

	assert.Empty(t, engine.MarkOverdue(p, baseTime.Add(23*time.Hour)))

	marked := engine.MarkOverdue(p, baseTime.Add(25*time.Hour))
	require.Len(t, marked, 1)
	assert.Equal(t, silent.ID, marked[0].EvaluatorID)
	assert.Equal(t, valueobject.AssignmentStatusOverdue, created[0].Status)
	assert.Equal(t, valueobject.AssignmentStatusAccepted, created[1].Status)

	marked = engine.MarkOverdue(p, baseTime.AddDate(0, 0, 6))
	require.Len(t, marked, 1)
	assert.Equal(t, accepted.ID, marked[0].EvaluatorID)
	assert.True(t, created[1].CanRate(), "accepted assignment stays ratable after due date")
	assert.False(t, created[0].CanRate())

	_, err = engine.Respond(p, created[0].ID, valueobject.AssignmentResponseAccept, nil, evaluatorActor(silent.ID), baseTime.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.True(t, created[0].CanRate())
}
