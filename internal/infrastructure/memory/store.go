package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/repository"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

// Store: хранилище в памяти для тестов и STORAGE_DRIVER=memory.
// Соблюдает те же гарантии, что и PostgreSQL: условное сохранение по
// StateToken и уникальность активного назначения.
type Store struct {
	mu            sync.RWMutex
	proposals     map[uuid.UUID]*entity.Proposal
	evaluators    map[uuid.UUID]*entity.Evaluator
	notifications map[uuid.UUID]*entity.Notification
	delivered     map[notificationKey]uuid.UUID
}

type notificationKey struct {
	eventID uuid.UUID
	userID  uuid.UUID
}

func NewStore() *Store {
	return &Store{
		proposals:     make(map[uuid.UUID]*entity.Proposal),
		evaluators:    make(map[uuid.UUID]*entity.Evaluator),
		notifications: make(map[uuid.UUID]*entity.Notification),
		delivered:     make(map[notificationKey]uuid.UUID),
	}
}

func (s *Store) Proposals() repository.ProposalRepository {
	return &proposalRepository{s}
}

func (s *Store) Evaluators() repository.EvaluatorRepository {
	return &evaluatorRepository{s}
}

func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepository{s}
}

type proposalRepository struct{ s *Store }

func (r *proposalRepository) Create(ctx context.Context, p *entity.Proposal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.proposals[p.ID]; ok {
		return apperror.New(apperror.ErrCodeConflict, "заявка уже существует")
	}
	r.s.proposals[p.ID] = p.Clone()
	return nil
}

func (r *proposalRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.proposals[id]
	if !ok {
		return nil, apperror.ErrProposalNotFound
	}
	return p.Clone(), nil
}

func (r *proposalRepository) List(ctx context.Context, filter repository.ProposalFilter) ([]*entity.Proposal, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []*entity.Proposal
	for _, p := range r.s.proposals {
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.ProponentID != nil && p.ProponentID != *filter.ProponentID {
			continue
		}
		if filter.EvaluatorID != nil && !assignedTo(p, *filter.EvaluatorID) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	result := make([]*entity.Proposal, 0, end-start)
	for _, p := range matched[start:end] {
		result = append(result, p.Clone())
	}
	return result, total, nil
}

func assignedTo(p *entity.Proposal, evaluatorID uuid.UUID) bool {
	for _, a := range p.Assignments {
		if a.EvaluatorID == evaluatorID {
			return true
		}
	}
	return false
}

func (r *proposalRepository) Save(ctx context.Context, p *entity.Proposal, expected entity.StateToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.proposals[p.ID]
	if !ok {
		return apperror.ErrProposalNotFound
	}
	if stored.Token() != expected {
		return apperror.ErrStaleState
	}

	changes := p.Changes()
	next := stored.Clone()
	next.Status = p.Status
	next.DocumentVersion = p.DocumentVersion
	next.RevisionDeadline = p.RevisionDeadline
	next.FundingDocumentRef = p.FundingDocumentRef
	next.ClaimedBy = p.ClaimedBy
	next.LastTransitionAt = p.LastTransitionAt
	if changes.NewVersion != nil {
		next.Versions = append(next.Versions, *changes.NewVersion)
	}
	for _, id := range changes.Assignments {
		a := p.Assignment(id)
		if a == nil {
			continue
		}
		if err := upsertAssignment(next, a); err != nil {
			return err
		}
	}
	next.Decisions = append(next.Decisions, changes.Decisions...)

	r.s.proposals[p.ID] = next
	return nil
}

// upsertAssignment не перезаписывает завершённое назначение: завершение
// приходит только из AppendRating. Изменение уже завершённого назначения
// означает, что снимок устарел.
func upsertAssignment(p *entity.Proposal, a *entity.EvaluatorAssignment) error {
	copied := *a
	if copied.IsActive() {
		for _, other := range p.Assignments {
			if other.ID != copied.ID && other.EvaluatorID == copied.EvaluatorID &&
				other.DocumentVersion == copied.DocumentVersion && other.IsActive() {
				return apperror.New(apperror.ErrCodeDuplicateAssignment, "эксперт уже назначен на эту версию заявки")
			}
		}
	}
	for i, existing := range p.Assignments {
		if existing.ID != copied.ID {
			continue
		}
		if existing.Status == valueobject.AssignmentStatusCompleted {
			return apperror.ErrStaleState
		}
		p.Assignments[i] = &copied
		return nil
	}
	p.Assignments = append(p.Assignments, &copied)
	return nil
}

func (r *proposalRepository) AppendRating(ctx context.Context, rating *entity.EvaluatorRating, assignmentID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.proposals[rating.ProposalID]
	if !ok {
		return apperror.ErrProposalNotFound
	}
	if stored.Status != valueobject.ProposalStatusUnderEvaluation || stored.DocumentVersion != rating.DocumentVersion {
		return apperror.ErrStaleState
	}
	if stored.HasRated(rating.EvaluatorID, rating.DocumentVersion) {
		return apperror.ErrAlreadyRated
	}
	a := stored.Assignment(assignmentID)
	if a == nil || a.EvaluatorID != rating.EvaluatorID {
		return apperror.ErrAssignmentNotFound
	}
	if err := a.Complete(); err != nil {
		return err
	}
	stored.Ratings = append(stored.Ratings, *rating)
	return nil
}

func (r *proposalRepository) FindExpiredRevisionIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ids []uuid.UUID
	for _, p := range r.s.proposals {
		if p.RevisionExpired(now) {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (r *proposalRepository) FindOverdueAssignmentProposalIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ids []uuid.UUID
	for _, p := range r.s.proposals {
		if p.Status != valueobject.ProposalStatusUnderEvaluation {
			continue
		}
		for _, a := range p.CurrentAssignments() {
			copied := *a
			if copied.MarkOverdue(now) {
				ids = append(ids, p.ID)
				break
			}
		}
	}
	return ids, nil
}

type evaluatorRepository struct{ s *Store }

// workload считает активные назначения эксперта по всем заявкам. Вызывается под блокировкой.
func (s *Store) workload(evaluatorID uuid.UUID) int {
	n := 0
	for _, p := range s.proposals {
		for _, a := range p.Assignments {
			if a.EvaluatorID == evaluatorID && a.IsActive() {
				n++
			}
		}
	}
	return n
}

func (s *Store) evaluatorView(ev *entity.Evaluator) *entity.Evaluator {
	copied := *ev
	copied.Specialties = append([]string(nil), ev.Specialties...)
	copied.CurrentWorkload = s.workload(ev.ID)
	return &copied
}

func (r *evaluatorRepository) Create(ctx context.Context, ev *entity.Evaluator) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.evaluators[ev.ID]; ok {
		return apperror.New(apperror.ErrCodeConflict, "эксперт уже зарегистрирован")
	}
	copied := *ev
	r.s.evaluators[ev.ID] = &copied
	return nil
}

func (r *evaluatorRepository) Update(ctx context.Context, ev *entity.Evaluator) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.evaluators[ev.ID]; !ok {
		return apperror.ErrEvaluatorNotFound
	}
	copied := *ev
	r.s.evaluators[ev.ID] = &copied
	return nil
}

func (r *evaluatorRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Evaluator, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ev, ok := r.s.evaluators[id]
	if !ok {
		return nil, apperror.ErrEvaluatorNotFound
	}
	return r.s.evaluatorView(ev), nil
}

func (r *evaluatorRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Evaluator, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make(map[uuid.UUID]*entity.Evaluator, len(ids))
	for _, id := range ids {
		if ev, ok := r.s.evaluators[id]; ok {
			result[id] = r.s.evaluatorView(ev)
		}
	}
	return result, nil
}

func (r *evaluatorRepository) List(ctx context.Context, filter repository.EvaluatorFilter) ([]*entity.Evaluator, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []*entity.Evaluator
	for _, ev := range r.s.evaluators {
		view := r.s.evaluatorView(ev)
		if filter.Department != "" && !view.InDepartment(filter.Department) {
			continue
		}
		if filter.Specialty != "" && !view.HasSpecialty(filter.Specialty) {
			continue
		}
		if filter.AvailableOnly && !view.IsAvailable() {
			continue
		}
		result = append(result, view)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

type notificationRepository struct{ s *Store }

func (r *notificationRepository) Create(ctx context.Context, n *entity.Notification) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := notificationKey{eventID: n.EventID, userID: n.UserID}
	if _, ok := r.s.delivered[key]; ok {
		return false, nil
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	copied := *n
	r.s.notifications[n.ID] = &copied
	r.s.delivered[key] = n.ID
	return true, nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return nil, apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено")
	}
	copied := *n
	return &copied, nil
}

func (r *notificationRepository) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]entity.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var items []entity.Notification
	for _, n := range r.s.notifications {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		items = append(items, *n)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	start := min(offset, len(items))
	end := min(start+limit, len(items))
	return items[start:end], nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено")
	}
	n.IsRead = true
	return nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	count := 0
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}
