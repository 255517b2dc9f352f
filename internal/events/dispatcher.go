// Package events доставляет доменные события в приёмники после фиксации перехода.
package events

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/goroutine"
	"github.com/ignatzorin/research-review/internal/logger"
)

// Sink это один получатель событий: журнал, websocket, лента уведомлений, шина.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, events []entity.Event) error
}

// Metrics считает доставки. Реализуется internal/metrics.
type Metrics interface {
	EventPublished(sink, eventType string)
	EventFailed(sink string)
}

type nopMetrics struct{}

func (nopMetrics) EventPublished(string, string) {}
func (nopMetrics) EventFailed(string)            {}

// Dispatcher раздаёт события всем приёмникам. У каждого приёмника своя очередь
// и не больше одной горутины доставки, поэтому пакеты доходят до приёмника в
// порядке вызовов Publish. Ошибка приёмника логируется и не влияет на остальных.
type Dispatcher struct {
	lanes    []*lane
	metrics  Metrics
	recovery *goroutine.RecoveryHandler
	log      *logrus.Entry
}

type delivery struct {
	ctx    context.Context
	events []entity.Event
}

type lane struct {
	sink    Sink
	mu      sync.Mutex
	queue   []delivery
	running bool
}

func NewDispatcher(metrics Metrics, sinks ...Sink) *Dispatcher {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	log := logger.Component("events")
	lanes := make([]*lane, 0, len(sinks))
	for _, sink := range sinks {
		lanes = append(lanes, &lane{sink: sink})
	}
	return &Dispatcher{
		lanes:    lanes,
		metrics:  metrics,
		recovery: goroutine.NewRecoveryHandler(log),
		log:      log,
	}
}

// Publish не ждёт доставки. Контекст запроса отвязывается от отмены,
// чтобы завершение HTTP-запроса не обрывало доставку.
func (d *Dispatcher) Publish(ctx context.Context, events []entity.Event) {
	if len(events) == 0 {
		return
	}
	item := delivery{
		ctx:    context.WithoutCancel(ctx),
		events: append([]entity.Event(nil), events...),
	}
	for _, l := range d.lanes {
		l.mu.Lock()
		l.queue = append(l.queue, item)
		start := !l.running
		l.running = true
		l.mu.Unlock()
		if start {
			d.recovery.SafeGo(func() { d.drain(l) })
		}
	}
}

// drain доставляет пакеты очереди по одному, пока она не опустеет.
func (d *Dispatcher) drain(l *lane) {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.running = false
			l.mu.Unlock()
			return
		}
		item := l.queue[0]
		l.queue[0] = delivery{}
		l.queue = l.queue[1:]
		l.mu.Unlock()

		d.deliver(item.ctx, l.sink, item.events)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sink Sink, batch []entity.Event) {
	fields := logrus.Fields{
		"sink":        sink.Name(),
		"proposal_id": batch[0].ProposalID,
		"events":      len(batch),
	}
	defer func() {
		if r := recover(); r != nil {
			d.metrics.EventFailed(sink.Name())
			d.log.WithFields(fields).Errorf("event sink panicked: %v", r)
		}
	}()

	if err := sink.Deliver(ctx, batch); err != nil {
		d.metrics.EventFailed(sink.Name())
		d.log.WithError(err).WithFields(fields).Error("event delivery failed")
		return
	}
	for _, e := range batch {
		d.metrics.EventPublished(sink.Name(), string(e.Type))
	}
}

// Wait дожидается всех начатых доставок. Вызывается при остановке сервиса и в тестах.
func (d *Dispatcher) Wait() {
	d.recovery.Wait()
}
