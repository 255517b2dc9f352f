// Package metrics публикует счётчики процесса рецензирования в формате Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

const namespace = "research_review"

type Metrics struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	published   *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

// New регистрирует счётчики в собственном реестре, чтобы тесты не делили глобальный.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposal_transitions_total",
			Help:      "Зафиксированные переходы заявок по статусам.",
		}, []string{"from", "to"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_rejections_total",
			Help:      "Отклонённые операции по коду ошибки.",
		}, []string{"code"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_events_published_total",
			Help:      "События, доставленные приёмником.",
		}, []string{"sink", "type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_event_failures_total",
			Help:      "Ошибки доставки событий приёмником.",
		}, []string{"sink"}),
	}
	m.registry.MustRegister(
		m.transitions, m.rejections, m.published, m.failures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Transition(from, to valueobject.ProposalStatus) {
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) Rejection(code apperror.ErrorCode) {
	m.rejections.WithLabelValues(string(code)).Inc()
}

func (m *Metrics) EventPublished(sink, eventType string) {
	m.published.WithLabelValues(sink, eventType).Inc()
}

func (m *Metrics) EventFailed(sink string) {
	m.failures.WithLabelValues(sink).Inc()
}

// Handler отдаёт /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry нужен тестам для чтения значений.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
