package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

type AssignmentPolicy struct {
	ResponseSLA    time.Duration
	DefaultDueDays int
	MaxDueDays     int
}

func DefaultAssignmentPolicy() AssignmentPolicy {
	return AssignmentPolicy{ResponseSLA: 72 * time.Hour, DefaultDueDays: 14, MaxDueDays: 90}
}

type AssignmentEngine struct {
	policy AssignmentPolicy
}

func NewAssignmentEngine(policy AssignmentPolicy) *AssignmentEngine {
	defaults := DefaultAssignmentPolicy()
	if policy.ResponseSLA <= 0 {
		policy.ResponseSLA = defaults.ResponseSLA
	}
	if policy.MaxDueDays <= 0 {
		policy.MaxDueDays = defaults.MaxDueDays
	}
	if policy.DefaultDueDays <= 0 || policy.DefaultDueDays > policy.MaxDueDays {
		policy.DefaultDueDays = min(defaults.DefaultDueDays, policy.MaxDueDays)
	}
	return &AssignmentEngine{policy: policy}
}

func (e *AssignmentEngine) dueAt(dueInDays int, now time.Time) (time.Time, error) {
	if dueInDays == 0 {
		dueInDays = e.policy.DefaultDueDays
	}
	if dueInDays < 1 || dueInDays > e.policy.MaxDueDays {
		return time.Time{}, apperror.Newf(apperror.ErrCodeValidation, "срок оценки должен быть от 1 до %d дней", e.policy.MaxDueDays)
	}
	return now.AddDate(0, 0, dueInDays), nil
}

// checkCandidate проверяет подразделение, нагрузку и повторное назначение.
func (e *AssignmentEngine) checkCandidate(p *entity.Proposal, department string, ev *entity.Evaluator) error {
	if !ev.InDepartment(department) {
		return apperror.Newf(apperror.ErrCodeValidation, "эксперт %s не относится к подразделению %s", ev.ID, department)
	}
	if p.ActiveAssignmentFor(ev.ID) != nil || p.HasRated(ev.ID, p.DocumentVersion) {
		return apperror.Newf(apperror.ErrCodeDuplicateAssignment, "эксперт %s уже назначен на эту версию заявки", ev.ID)
	}
	if !ev.IsAvailable() {
		return apperror.Newf(apperror.ErrCodeCapacityExceeded, "эксперт %s перегружен: %d из %d", ev.ID, ev.CurrentWorkload, ev.MaxWorkload)
	}
	return nil
}

// Assign создаёт назначения на текущую версию и переводит заявку на оценку.
// Либо назначаются все запрошенные эксперты, либо ни один.
func (e *AssignmentEngine) Assign(p *entity.Proposal, department string, evaluatorIDs []uuid.UUID, evaluators map[uuid.UUID]*entity.Evaluator, dueInDays int, actor entity.Actor, now time.Time) ([]*entity.EvaluatorAssignment, error) {
	if !actor.Role.IsStaff() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "назначать экспертов может только сотрудник")
	}
	if err := p.RequireStatus(valueobject.ProposalStatusEvaluatorAssignment); err != nil {
		return nil, err
	}
	department = strings.TrimSpace(department)
	if department == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "подразделение обязательно")
	}
	if len(evaluatorIDs) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "нужно выбрать хотя бы одного эксперта")
	}
	dueAt, err := e.dueAt(dueInDays, now)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(evaluatorIDs))
	for _, id := range evaluatorIDs {
		if _, ok := seen[id]; ok {
			return nil, apperror.Newf(apperror.ErrCodeDuplicateAssignment, "эксперт %s указан повторно", id)
		}
		seen[id] = struct{}{}
		ev, ok := evaluators[id]
		if !ok {
			return nil, apperror.Newf(apperror.ErrCodeNotFound, "эксперт %s не найден", id)
		}
		if err := e.checkCandidate(p, department, ev); err != nil {
			return nil, err
		}
	}

	created := make([]*entity.EvaluatorAssignment, 0, len(evaluatorIDs))
	for _, id := range evaluatorIDs {
		a := entity.NewEvaluatorAssignment(p.ID, id, p.DocumentVersion, department, now, now.Add(e.policy.ResponseSLA), dueAt)
		p.AddAssignment(a)
		p.Record(entity.NewEvent(entity.EventEvaluatorAssigned, p, actor, now, assignmentPayload(a), id))
		created = append(created, a)
	}
	if err := p.TransitionTo(valueobject.ProposalStatusUnderEvaluation, actor, now); err != nil {
		return nil, err
	}
	return created, nil
}

// Respond фиксирует ответ эксперта на своё назначение.
func (e *AssignmentEngine) Respond(p *entity.Proposal, assignmentID uuid.UUID, response valueobject.AssignmentResponse, remarks *string, actor entity.Actor, now time.Time) (*entity.EvaluatorAssignment, error) {
	a, err := e.currentAssignment(p, assignmentID)
	if err != nil {
		return nil, err
	}
	if actor.Role != valueobject.RoleEvaluator || a.EvaluatorID != actor.ID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "ответить на назначение может только назначенный эксперт")
	}
	if err := p.RequireStatus(valueobject.ProposalStatusUnderEvaluation); err != nil {
		return nil, err
	}
	switch response {
	case valueobject.AssignmentResponseAccept:
		err = a.Accept(now)
	case valueobject.AssignmentResponseDecline:
		err = a.Decline(now, trimmed(remarks))
	default:
		err = apperror.New(apperror.ErrCodeValidation, "ответ должен быть accept или decline")
	}
	if err != nil {
		return nil, err
	}
	p.TouchAssignment(a.ID)
	payload := assignmentPayload(a)
	payload["response"] = string(response)
	p.Record(entity.NewEvent(entity.EventAssignmentResponded, p, actor, now, payload, actor.ID))
	return a, nil
}

// Reassign заменяет эксперта в текущем цикле. Недоступно, если заменяемый эксперт
// уже отправил оценку по текущей версии.
func (e *AssignmentEngine) Reassign(p *entity.Proposal, assignmentID uuid.UUID, replacement *entity.Evaluator, dueInDays int, actor entity.Actor, now time.Time) (*entity.EvaluatorAssignment, error) {
	if !actor.Role.IsStaff() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "заменять экспертов может только сотрудник")
	}
	if err := p.RequireStatus(valueobject.ProposalStatusUnderEvaluation); err != nil {
		return nil, err
	}
	old, err := e.currentAssignment(p, assignmentID)
	if err != nil {
		return nil, err
	}
	if old.Status == valueobject.AssignmentStatusCompleted || p.HasRated(old.EvaluatorID, p.DocumentVersion) {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "эксперт уже отправил оценку, замена невозможна")
	}
	if replacement.ID == old.EvaluatorID {
		return nil, apperror.New(apperror.ErrCodeDuplicateAssignment, "новый эксперт совпадает с заменяемым")
	}
	if err := e.checkCandidate(p, old.Department, replacement); err != nil {
		return nil, err
	}
	dueAt, err := e.dueAt(dueInDays, now)
	if err != nil {
		return nil, err
	}

	if !old.IsDeclined() {
		reason := "заменён сотрудником"
		if err := old.Decline(now, &reason); err != nil {
			return nil, err
		}
		p.TouchAssignment(old.ID)
	}
	a := entity.NewEvaluatorAssignment(p.ID, replacement.ID, p.DocumentVersion, old.Department, now, now.Add(e.policy.ResponseSLA), dueAt)
	p.AddAssignment(a)
	payload := assignmentPayload(a)
	payload["replaces_assignment_id"] = old.ID.String()
	p.Record(entity.NewEvent(entity.EventEvaluatorAssigned, p, actor, now, payload, replacement.ID, old.EvaluatorID))
	return a, nil
}

// MarkOverdue помечает просроченные назначения текущей версии.
func (e *AssignmentEngine) MarkOverdue(p *entity.Proposal, now time.Time) []*entity.EvaluatorAssignment {
	if p.Status != valueobject.ProposalStatusUnderEvaluation {
		return nil
	}
	var marked []*entity.EvaluatorAssignment
	actor := entity.SystemActor()
	for _, a := range p.CurrentAssignments() {
		if !a.MarkOverdue(now) {
			continue
		}
		p.TouchAssignment(a.ID)
		p.Record(entity.NewEvent(entity.EventAssignmentOverdue, p, actor, now, assignmentPayload(a), a.EvaluatorID))
		marked = append(marked, a)
	}
	return marked
}

func (e *AssignmentEngine) currentAssignment(p *entity.Proposal, assignmentID uuid.UUID) (*entity.EvaluatorAssignment, error) {
	a := p.Assignment(assignmentID)
	if a == nil {
		return nil, apperror.ErrAssignmentNotFound
	}
	if a.DocumentVersion != p.DocumentVersion {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "назначение относится к предыдущей версии заявки")
	}
	return a, nil
}

func assignmentPayload(a *entity.EvaluatorAssignment) map[string]any {
	return map[string]any{
		"assignment_id": a.ID.String(),
		"evaluator_id":  a.EvaluatorID.String(),
		"status":        string(a.Status),
		"respond_by":    a.RespondBy,
		"due_at":        a.DueAt,
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
