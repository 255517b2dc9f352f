package proposal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/repository"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/logger"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

// Clock возвращает текущее время. В тестах подменяется фиксированным.
type Clock func() time.Time

type Metrics interface {
	Transition(from, to valueobject.ProposalStatus)
	Rejection(code apperror.ErrorCode)
}

type nopMetrics struct{}

func (nopMetrics) Transition(valueobject.ProposalStatus, valueobject.ProposalStatus) {}
func (nopMetrics) Rejection(apperror.ErrorCode)                                      {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, []entity.Event) {}

// Result: снимок заявки после операции и события, порождённые ею.
type Result struct {
	Proposal *entity.Proposal
	Events   []entity.Event
}

// Workflow содержит общую часть всех операций над заявкой: загрузка, проверка
// ожидаемого состояния, фиксация и публикация событий.
type Workflow struct {
	proposals repository.ProposalRepository
	publisher repository.EventPublisher
	metrics   Metrics
	now       Clock
	log       *logrus.Entry
}

func NewWorkflow(proposals repository.ProposalRepository, publisher repository.EventPublisher, metrics Metrics, now Clock) *Workflow {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if now == nil {
		now = time.Now
	}
	return &Workflow{
		proposals: proposals,
		publisher: publisher,
		metrics:   metrics,
		now:       now,
		log:       logger.Component("workflow"),
	}
}

func (w *Workflow) Now() time.Time {
	return w.now().UTC()
}

func (w *Workflow) load(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	p, err := w.proposals.FindByID(ctx, id)
	if err != nil {
		return nil, storageError(err, "не удалось загрузить заявку")
	}
	return p, nil
}

// run выполняет операцию над одной заявкой атомарно: при ошибке fn или
// конфликте версий ничего не сохраняется и события не публикуются.
func (w *Workflow) run(ctx context.Context, op string, id uuid.UUID, expected *entity.StateToken, actor entity.Actor, fn func(p *entity.Proposal, now time.Time) error) (*Result, error) {
	p, err := w.load(ctx, id)
	if err != nil {
		return nil, w.reject(op, id, actor, err)
	}
	if err := p.CheckToken(expected); err != nil {
		return nil, w.reject(op, id, actor, err)
	}
	token := p.Token()
	if err := fn(p, w.Now()); err != nil {
		return nil, w.reject(op, id, actor, err)
	}
	result, err := w.commit(ctx, p, token, actor)
	if err != nil {
		return nil, w.reject(op, id, actor, err)
	}
	return result, nil
}

func (w *Workflow) commit(ctx context.Context, p *entity.Proposal, token entity.StateToken, actor entity.Actor) (*Result, error) {
	if !p.HasChanges() {
		return &Result{Proposal: p}, nil
	}
	if err := w.proposals.Save(ctx, p, token); err != nil {
		return nil, storageError(err, "не удалось сохранить заявку")
	}
	events := p.PullEvents()
	w.emit(ctx, events)
	return &Result{Proposal: p, Events: events}, nil
}

// emit логирует переходы и отдаёт события публикатору после фиксации.
func (w *Workflow) emit(ctx context.Context, events []entity.Event) {
	for _, e := range events {
		if e.Type != entity.EventProposalStatusChanged {
			continue
		}
		from, _ := e.Payload["from"].(string)
		to, _ := e.Payload["to"].(string)
		w.metrics.Transition(valueobject.ProposalStatus(from), valueobject.ProposalStatus(to))
		w.log.WithFields(logrus.Fields{
			"proposal_id":      e.ProposalID,
			"from":             from,
			"to":               to,
			"document_version": e.DocumentVersion,
			"actor_id":         e.ActorID,
			"actor_role":       e.ActorRole,
		}).Info("proposal transition committed")
	}
	if len(events) > 0 {
		w.publisher.Publish(ctx, events)
	}
}

func (w *Workflow) reject(op string, id uuid.UUID, actor entity.Actor, err error) error {
	code := apperror.CodeOf(err)
	w.metrics.Rejection(code)
	w.log.WithFields(logrus.Fields{
		"operation":   op,
		"proposal_id": id,
		"actor_id":    actor.ID,
		"actor_role":  actor.Role,
		"code":        code,
	}).WithError(err).Debug("workflow operation rejected")
	return err
}

// storageError оборачивает ошибки хранилища, не являющиеся AppError.
func storageError(err error, message string) error {
	if apperror.CodeOf(err) != apperror.ErrCodeInternal {
		return err
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, message)
}
