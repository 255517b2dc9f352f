package valueobject

import "github.com/ignatzorin/research-review/internal/pkg/apperror"

// Gate: контрольная точка процесса, на которой принимается решение.
type Gate string

const (
	GateRnD         Gate = "rnd"
	GateEvaluation  Gate = "evaluation"
	GateEndorsement Gate = "endorsement"
	GateFunding     Gate = "funding"
)

type DecisionKind string

const (
	DecisionEndorse DecisionKind = "endorse"
	DecisionApprove DecisionKind = "approve"
	DecisionRevise  DecisionKind = "revise"
	DecisionReject  DecisionKind = "reject"
)

func NewGate(gate string) (Gate, error) {
	g := Gate(gate)
	switch g {
	case GateRnD, GateEvaluation, GateEndorsement, GateFunding:
		return g, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректный шлюз")
}

func NewDecisionKind(decision string) (DecisionKind, error) {
	d := DecisionKind(decision)
	switch d {
	case DecisionEndorse, DecisionApprove, DecisionRevise, DecisionReject:
		return d, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректное решение")
}

// GateRule описывает, кто и из каких статусов принимает решение на шлюзе
// и в какой статус переводит каждое решение.
type GateRule struct {
	Roles    []Role
	Sources  []ProposalStatus
	Outcomes map[DecisionKind]ProposalStatus
}

// Решения на шлюзе оценки не принимаются вручную: их выводит агрегатор оценок.
var gateRules = map[Gate]GateRule{
	GateRnD: {
		Roles:   []Role{RoleRnDStaff},
		Sources: []ProposalStatus{ProposalStatusSubmitted, ProposalStatusRnDReview},
		Outcomes: map[DecisionKind]ProposalStatus{
			DecisionEndorse: ProposalStatusEvaluatorAssignment,
			DecisionRevise:  ProposalStatusRevisionRnD,
			DecisionReject:  ProposalStatusRejectedByRnD,
		},
	},
	GateEndorsement: {
		Roles:   []Role{RoleCommittee},
		Sources: []ProposalStatus{ProposalStatusEndorsementPending},
		Outcomes: map[DecisionKind]ProposalStatus{
			DecisionEndorse: ProposalStatusEndorsed,
			DecisionRevise:  ProposalStatusRevisionFunding,
			DecisionReject:  ProposalStatusFundingRejected,
		},
	},
	GateFunding: {
		Roles:   []Role{RoleFundingAuthority},
		Sources: []ProposalStatus{ProposalStatusEndorsed},
		Outcomes: map[DecisionKind]ProposalStatus{
			DecisionApprove: ProposalStatusFunded,
			DecisionRevise:  ProposalStatusRevisionFunding,
			DecisionReject:  ProposalStatusFundingRejected,
		},
	},
}

// RuleFor возвращает правило ручного шлюза.
func (g Gate) RuleFor() (GateRule, bool) {
	rule, ok := gateRules[g]
	return rule, ok
}

func (r GateRule) AllowsRole(role Role) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

func (r GateRule) AllowsSource(status ProposalStatus) bool {
	for _, source := range r.Sources {
		if source == status {
			return true
		}
	}
	return false
}

// EntryStatus возвращает статус, с которого шлюз продолжает работу после повторной подачи.
func (g Gate) EntryStatus() ProposalStatus {
	switch g {
	case GateRnD:
		return ProposalStatusRnDReview
	case GateEvaluation:
		return ProposalStatusEvaluatorAssignment
	default:
		return ProposalStatusEndorsementPending
	}
}

// ExpiredStatus возвращает терминальный статус для просроченной доработки.
func (g Gate) ExpiredStatus() ProposalStatus {
	switch g {
	case GateRnD:
		return ProposalStatusRejectedByRnD
	case GateEvaluation:
		return ProposalStatusRejectedByEval
	default:
		return ProposalStatusFundingRejected
	}
}

// RevisionStatus возвращает статус доработки, открытой шлюзом.
func (g Gate) RevisionStatus() ProposalStatus {
	switch g {
	case GateRnD:
		return ProposalStatusRevisionRnD
	case GateEvaluation:
		return ProposalStatusRevisionEval
	default:
		return ProposalStatusRevisionFunding
	}
}
