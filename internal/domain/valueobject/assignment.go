package valueobject

import "github.com/ignatzorin/research-review/internal/pkg/apperror"

type AssignmentStatus string

const (
	AssignmentStatusPending   AssignmentStatus = "pending"
	AssignmentStatusAccepted  AssignmentStatus = "accepted"
	AssignmentStatusDeclined  AssignmentStatus = "declined"
	AssignmentStatusCompleted AssignmentStatus = "completed"
	AssignmentStatusOverdue   AssignmentStatus = "overdue"
)

var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentStatusPending:   {AssignmentStatusAccepted, AssignmentStatusDeclined, AssignmentStatusOverdue},
	AssignmentStatusOverdue:   {AssignmentStatusAccepted, AssignmentStatusDeclined, AssignmentStatusCompleted},
	AssignmentStatusAccepted:  {AssignmentStatusCompleted, AssignmentStatusDeclined, AssignmentStatusOverdue},
	AssignmentStatusDeclined:  {},
	AssignmentStatusCompleted: {},
}

func (s AssignmentStatus) IsValid() bool {
	_, ok := assignmentTransitions[s]
	return ok
}

func (s AssignmentStatus) CanTransitionTo(newStatus AssignmentStatus) bool {
	for _, status := range assignmentTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// IsActive: назначение занимает нагрузку эксперта.
func (s AssignmentStatus) IsActive() bool {
	return s == AssignmentStatusPending || s == AssignmentStatusAccepted || s == AssignmentStatusOverdue
}

// AssignmentResponse: ответ эксперта на назначение.
type AssignmentResponse string

const (
	AssignmentResponseAccept  AssignmentResponse = "accept"
	AssignmentResponseDecline AssignmentResponse = "decline"
)

func NewAssignmentResponse(response string) (AssignmentResponse, error) {
	r := AssignmentResponse(response)
	if r != AssignmentResponseAccept && r != AssignmentResponseDecline {
		return "", apperror.New(apperror.ErrCodeValidation, "ответ должен быть accept или decline")
	}
	return r, nil
}

type SuggestedDecision string

const (
	SuggestedApprove SuggestedDecision = "approve"
	SuggestedRevise  SuggestedDecision = "revise"
	SuggestedReject  SuggestedDecision = "reject"
)

func NewSuggestedDecision(decision string) (SuggestedDecision, error) {
	d := SuggestedDecision(decision)
	switch d {
	case SuggestedApprove, SuggestedRevise, SuggestedReject:
		return d, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "рекомендация эксперта должна быть approve, revise или reject")
}

// Severity упорядочивает рекомендации от мягкой к самой строгой.
func (d SuggestedDecision) Severity() int {
	switch d {
	case SuggestedReject:
		return 2
	case SuggestedRevise:
		return 1
	default:
		return 0
	}
}

// Availability: производное состояние эксперта по нагрузке.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityBusy      Availability = "busy"
)
