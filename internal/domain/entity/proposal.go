package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

const MaxTitleLength = 300

// Proposal: агрегат заявки. Все изменения проходят через методы агрегата
// и накапливаются в ChangeSet до сохранения.
type Proposal struct {
	ID                 uuid.UUID
	Title              string
	ProgramTitle       string
	Department         string
	ProponentID        uuid.UUID
	Status             valueobject.ProposalStatus
	DocumentVersion    int
	RevisionDeadline   *time.Time
	FundingDocumentRef *string
	ClaimedBy          *uuid.UUID
	CreatedAt          time.Time
	LastTransitionAt   time.Time

	Versions    []DocumentVersion
	Assignments []*EvaluatorAssignment
	Ratings     []EvaluatorRating
	Decisions   []Decision

	changes ChangeSet
}

// ChangeSet: несохранённые изменения агрегата.
type ChangeSet struct {
	NewVersion  *DocumentVersion
	Assignments []uuid.UUID
	Decisions   []Decision
	Events      []Event
}

// StateToken: ключ оптимистической блокировки.
type StateToken struct {
	Status          valueobject.ProposalStatus `json:"status"`
	DocumentVersion int                        `json:"document_version"`
}

func NewProposal(proponentID uuid.UUID, title, programTitle, department string, first DocumentVersion, draft bool, now time.Time) (*Proposal, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название заявки обязательно")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "название заявки не должно превышать %d символов", MaxTitleLength)
	}
	if proponentID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "автор заявки обязателен")
	}
	if !draft {
		if err := first.validate(); err != nil {
			return nil, err
		}
	}

	status := valueobject.ProposalStatusSubmitted
	if draft {
		status = valueobject.ProposalStatusDraft
	}
	first.Version = 1
	first.SubmittedAt = now

	p := &Proposal{
		ID:               uuid.New(),
		Title:            title,
		ProgramTitle:     strings.TrimSpace(programTitle),
		Department:       strings.TrimSpace(department),
		ProponentID:      proponentID,
		Status:           status,
		DocumentVersion:  1,
		CreatedAt:        now,
		LastTransitionAt: now,
		Versions:         []DocumentVersion{first},
	}
	if !draft {
		p.record(NewEvent(EventProposalStatusChanged, p, Actor{ID: proponentID, Role: valueobject.RoleProponent}, now, map[string]any{
			"from": string(valueobject.ProposalStatusDraft),
			"to":   string(status),
		}, proponentID))
	}
	return p, nil
}

func (v DocumentVersion) validate() error {
	if strings.TrimSpace(v.DocumentRef) == "" {
		return apperror.New(apperror.ErrCodeValidation, "ссылка на документ обязательна")
	}
	if len(v.BudgetLines) == 0 {
		return apperror.New(apperror.ErrCodeValidation, "нужен хотя бы один источник финансирования")
	}
	return nil
}

func (p *Proposal) Token() StateToken {
	return StateToken{Status: p.Status, DocumentVersion: p.DocumentVersion}
}

// CheckToken возвращает STALE_STATE, если заявка изменилась с момента чтения.
func (p *Proposal) CheckToken(expected *StateToken) error {
	if expected == nil {
		return nil
	}
	if *expected != p.Token() {
		return apperror.ErrStaleState
	}
	return nil
}

func (p *Proposal) IsOwnedBy(userID uuid.UUID) bool {
	return p.ProponentID == userID
}

// TransitionTo: единственная точка смены статуса.
func (p *Proposal) TransitionTo(to valueobject.ProposalStatus, actor Actor, now time.Time) error {
	if !to.IsValid() {
		return apperror.New(apperror.ErrCodeValidation, "некорректный статус заявки")
	}
	if !p.Status.CanTransitionTo(to) {
		return apperror.Newf(apperror.ErrCodeInvalidTransition, "переход из статуса %s в %s невозможен", p.Status, to)
	}
	from := p.Status
	p.Status = to
	p.LastTransitionAt = now
	if !to.IsRevision() {
		p.RevisionDeadline = nil
	}
	p.record(NewEvent(EventProposalStatusChanged, p, actor, now, map[string]any{
		"from": string(from),
		"to":   string(to),
	}, p.ProponentID))
	return nil
}

// RequireStatus возвращает INVALID_TRANSITION, если заявка не в одном из статусов.
func (p *Proposal) RequireStatus(statuses ...valueobject.ProposalStatus) error {
	for _, s := range statuses {
		if p.Status == s {
			return nil
		}
	}
	return apperror.Newf(apperror.ErrCodeInvalidTransition, "действие недоступно в статусе %s", p.Status)
}

func (p *Proposal) Submit(actor Actor, now time.Time) error {
	if !p.IsOwnedBy(actor.ID) {
		return apperror.ErrForbidden
	}
	if err := p.RequireStatus(valueobject.ProposalStatusDraft); err != nil {
		return err
	}
	if err := p.CurrentVersion().validate(); err != nil {
		return err
	}
	return p.TransitionTo(valueobject.ProposalStatusSubmitted, actor, now)
}

func (p *Proposal) Claim(actor Actor, now time.Time) error {
	if err := p.RequireStatus(valueobject.ProposalStatusSubmitted); err != nil {
		return err
	}
	id := actor.ID
	p.ClaimedBy = &id
	return p.TransitionTo(valueobject.ProposalStatusRnDReview, actor, now)
}

// OpenRevision переводит заявку в доработку от имени шлюза с крайним сроком.
func (p *Proposal) OpenRevision(origin valueobject.Gate, deadline time.Time, window string, actor Actor, now time.Time) error {
	if err := p.TransitionTo(origin.RevisionStatus(), actor, now); err != nil {
		return err
	}
	p.RevisionDeadline = &deadline
	p.record(NewEvent(EventRevisionOpened, p, actor, now, map[string]any{
		"origin":   string(origin),
		"deadline": deadline,
		"window":   window,
	}, p.ProponentID))
	return nil
}

// Resubmit принимает новую версию материалов и возвращает заявку на шлюз-инициатор.
func (p *Proposal) Resubmit(next DocumentVersion, actor Actor, now time.Time) error {
	if !p.IsOwnedBy(actor.ID) {
		return apperror.ErrForbidden
	}
	origin, ok := p.Status.RevisionOrigin()
	if !ok {
		return apperror.Newf(apperror.ErrCodeInvalidTransition, "повторная подача недоступна в статусе %s", p.Status)
	}
	if p.RevisionExpired(now) {
		return apperror.ErrRevisionExpired
	}
	if err := next.validate(); err != nil {
		return err
	}

	next.Version = p.DocumentVersion + 1
	next.SubmittedAt = now
	p.DocumentVersion = next.Version
	if err := p.TransitionTo(origin.EntryStatus(), actor, now); err != nil {
		p.DocumentVersion--
		return err
	}
	p.Versions = append(p.Versions, next)
	stored := next.clone()
	p.changes.NewVersion = &stored
	return nil
}

func (p *Proposal) RevisionExpired(now time.Time) bool {
	return p.Status.IsRevision() && p.RevisionDeadline != nil && now.After(*p.RevisionDeadline)
}

// ExpireRevision закрывает просроченную доработку терминальным статусом.
func (p *Proposal) ExpireRevision(now time.Time) (bool, error) {
	if !p.RevisionExpired(now) {
		return false, nil
	}
	origin, _ := p.Status.RevisionOrigin()
	deadline := *p.RevisionDeadline
	actor := SystemActor()
	if err := p.TransitionTo(origin.ExpiredStatus(), actor, now); err != nil {
		return false, err
	}
	p.record(NewEvent(EventRevisionExpired, p, actor, now, map[string]any{
		"origin":   string(origin),
		"deadline": deadline,
	}, p.ProponentID))
	return true, nil
}

func (p *Proposal) AttachFundingDocument(ref string) {
	p.FundingDocumentRef = &ref
}

func (p *Proposal) AddDecision(d Decision) {
	p.Decisions = append(p.Decisions, d)
	p.changes.Decisions = append(p.changes.Decisions, d)
}

func (p *Proposal) AddAssignment(a *EvaluatorAssignment) {
	p.Assignments = append(p.Assignments, a)
	p.TouchAssignment(a.ID)
}

// TouchAssignment помечает назначение как изменённое.
func (p *Proposal) TouchAssignment(id uuid.UUID) {
	for _, existing := range p.changes.Assignments {
		if existing == id {
			return
		}
	}
	p.changes.Assignments = append(p.changes.Assignments, id)
}

func (p *Proposal) Record(e Event) {
	p.record(e)
}

func (p *Proposal) record(e Event) {
	p.changes.Events = append(p.changes.Events, e)
}

func (p *Proposal) CurrentVersion() DocumentVersion {
	v, _ := p.Version(p.DocumentVersion)
	return v
}

func (p *Proposal) Version(n int) (DocumentVersion, bool) {
	for _, v := range p.Versions {
		if v.Version == n {
			return v, true
		}
	}
	return DocumentVersion{}, false
}

func (p *Proposal) Assignment(id uuid.UUID) *EvaluatorAssignment {
	for _, a := range p.Assignments {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// CurrentAssignments возвращает назначения текущей версии.
func (p *Proposal) CurrentAssignments() []*EvaluatorAssignment {
	var result []*EvaluatorAssignment
	for _, a := range p.Assignments {
		if a.DocumentVersion == p.DocumentVersion {
			result = append(result, a)
		}
	}
	return result
}

// ActiveAssignmentFor ищет незавершённое назначение эксперта по текущей версии.
func (p *Proposal) ActiveAssignmentFor(evaluatorID uuid.UUID) *EvaluatorAssignment {
	for _, a := range p.CurrentAssignments() {
		if a.EvaluatorID == evaluatorID && a.IsActive() {
			return a
		}
	}
	return nil
}

func (p *Proposal) CurrentRatings() []EvaluatorRating {
	var result []EvaluatorRating
	for _, r := range p.Ratings {
		if r.DocumentVersion == p.DocumentVersion {
			result = append(result, r)
		}
	}
	return result
}

func (p *Proposal) HasRated(evaluatorID uuid.UUID, version int) bool {
	for _, r := range p.Ratings {
		if r.EvaluatorID == evaluatorID && r.DocumentVersion == version {
			return true
		}
	}
	return false
}

func (p *Proposal) Changes() ChangeSet {
	return p.changes
}

// PullEvents возвращает накопленные события и очищает ChangeSet.
func (p *Proposal) PullEvents() []Event {
	events := p.changes.Events
	p.changes = ChangeSet{}
	return events
}

func (p *Proposal) HasChanges() bool {
	c := p.changes
	return c.NewVersion != nil || len(c.Assignments) > 0 || len(c.Decisions) > 0 || len(c.Events) > 0
}

// Clone возвращает независимую копию без несохранённых изменений.
func (p *Proposal) Clone() *Proposal {
	c := *p
	c.changes = ChangeSet{}
	c.RevisionDeadline = copyTime(p.RevisionDeadline)
	if p.FundingDocumentRef != nil {
		ref := *p.FundingDocumentRef
		c.FundingDocumentRef = &ref
	}
	if p.ClaimedBy != nil {
		id := *p.ClaimedBy
		c.ClaimedBy = &id
	}
	c.Versions = make([]DocumentVersion, len(p.Versions))
	for i, v := range p.Versions {
		c.Versions[i] = v.clone()
	}
	c.Assignments = make([]*EvaluatorAssignment, len(p.Assignments))
	for i, a := range p.Assignments {
		copied := *a
		c.Assignments[i] = &copied
	}
	c.Ratings = append([]EvaluatorRating(nil), p.Ratings...)
	c.Decisions = append([]Decision(nil), p.Decisions...)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
