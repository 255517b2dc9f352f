package valueobject

import "github.com/ignatzorin/research-review/internal/pkg/apperror"

type ProposalStatus string

const (
	ProposalStatusDraft               ProposalStatus = "draft"
	ProposalStatusSubmitted           ProposalStatus = "submitted"
	ProposalStatusRnDReview           ProposalStatus = "rnd_review"
	ProposalStatusRevisionRnD         ProposalStatus = "revision_rnd"
	ProposalStatusRejectedByRnD       ProposalStatus = "rejected_rnd"
	ProposalStatusEvaluatorAssignment ProposalStatus = "evaluator_assignment"
	ProposalStatusUnderEvaluation     ProposalStatus = "under_evaluation"
	ProposalStatusRevisionEval        ProposalStatus = "revision_eval"
	ProposalStatusRejectedByEval      ProposalStatus = "rejected_eval"
	ProposalStatusEndorsementPending  ProposalStatus = "endorsement_pending"
	ProposalStatusEndorsed            ProposalStatus = "endorsed"
	ProposalStatusRevisionFunding     ProposalStatus = "revision_funding"
	ProposalStatusFunded              ProposalStatus = "funded"
	ProposalStatusFundingRejected     ProposalStatus = "funding_rejected"
)

// AllProposalStatuses перечисляет закрытое множество статусов заявки.
var AllProposalStatuses = []ProposalStatus{
	ProposalStatusDraft,
	ProposalStatusSubmitted,
	ProposalStatusRnDReview,
	ProposalStatusRevisionRnD,
	ProposalStatusRejectedByRnD,
	ProposalStatusEvaluatorAssignment,
	ProposalStatusUnderEvaluation,
	ProposalStatusRevisionEval,
	ProposalStatusRejectedByEval,
	ProposalStatusEndorsementPending,
	ProposalStatusEndorsed,
	ProposalStatusRevisionFunding,
	ProposalStatusFunded,
	ProposalStatusFundingRejected,
}

var proposalTransitions = map[ProposalStatus][]ProposalStatus{
	ProposalStatusDraft:               {ProposalStatusSubmitted},
	ProposalStatusSubmitted:           {ProposalStatusRnDReview, ProposalStatusEvaluatorAssignment, ProposalStatusRevisionRnD, ProposalStatusRejectedByRnD},
	ProposalStatusRnDReview:           {ProposalStatusEvaluatorAssignment, ProposalStatusRevisionRnD, ProposalStatusRejectedByRnD},
	ProposalStatusRevisionRnD:         {ProposalStatusRnDReview, ProposalStatusRejectedByRnD},
	ProposalStatusEvaluatorAssignment: {ProposalStatusUnderEvaluation},
	ProposalStatusUnderEvaluation:     {ProposalStatusEndorsementPending, ProposalStatusRevisionEval, ProposalStatusRejectedByEval},
	ProposalStatusRevisionEval:        {ProposalStatusEvaluatorAssignment, ProposalStatusRejectedByEval},
	ProposalStatusEndorsementPending:  {ProposalStatusEndorsed, ProposalStatusRevisionFunding, ProposalStatusFundingRejected},
	ProposalStatusEndorsed:            {ProposalStatusFunded, ProposalStatusRevisionFunding, ProposalStatusFundingRejected},
	ProposalStatusRevisionFunding:     {ProposalStatusEndorsementPending, ProposalStatusFundingRejected},
	ProposalStatusRejectedByRnD:       {},
	ProposalStatusRejectedByEval:      {},
	ProposalStatusFunded:              {},
	ProposalStatusFundingRejected:     {},
}

func (s ProposalStatus) IsValid() bool {
	_, ok := proposalTransitions[s]
	return ok
}

func (s ProposalStatus) CanTransitionTo(newStatus ProposalStatus) bool {
	for _, status := range proposalTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, что из статуса нет ни одного перехода.
func (s ProposalStatus) IsTerminal() bool {
	allowed, ok := proposalTransitions[s]
	return ok && len(allowed) == 0
}

func (s ProposalStatus) IsRevision() bool {
	_, ok := s.RevisionOrigin()
	return ok
}

// RevisionOrigin возвращает шлюз, запросивший доработку.
func (s ProposalStatus) RevisionOrigin() (Gate, bool) {
	switch s {
	case ProposalStatusRevisionRnD:
		return GateRnD, true
	case ProposalStatusRevisionEval:
		return GateEvaluation, true
	case ProposalStatusRevisionFunding:
		return GateFunding, true
	}
	return "", false
}

func NewProposalStatus(status string) (ProposalStatus, error) {
	s := ProposalStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заявки")
	}
	return s, nil
}
