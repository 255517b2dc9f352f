package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/research-review/internal/domain/entity"
)

type recordingSink struct {
	name string
	err  error
	mu   sync.Mutex
	got  []entity.Event
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(ctx context.Context, events []entity.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, events...)
	return s.err
}

func (s *recordingSink) events() []entity.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.Event(nil), s.got...)
}

type panickingSink struct{}

func (panickingSink) Name() string { return "panic" }

func (panickingSink) Deliver(context.Context, []entity.Event) error { panic("boom") }

type countingMetrics struct {
	mu        sync.Mutex
	published map[string]int
	failed    map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{published: map[string]int{}, failed: map[string]int{}}
}

func (m *countingMetrics) EventPublished(sink, eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[sink+"/"+eventType]++
}

func (m *countingMetrics) EventFailed(sink string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[sink]++
}

func sampleEvents(recipients ...uuid.UUID) []entity.Event {
	proposalID := uuid.New()
	return []entity.Event{
		{
			ID:              uuid.New(),
			Type:            entity.EventProposalStatusChanged,
			ProposalID:      proposalID,
			DocumentVersion: 1,
			OccurredAt:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			ActorRole:       "rnd_staff",
			Recipients:      recipients,
			Payload:         map[string]any{"from": "rnd_review", "to": "evaluator_assignment"},
		},
		{
			ID:              uuid.New(),
			Type:            entity.EventEvaluatorAssigned,
			ProposalID:      proposalID,
			DocumentVersion: 1,
			OccurredAt:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			Recipients:      recipients,
		},
	}
}

func TestDispatcher_FailingSinkDoesNotAffectOthers(t *testing.T) {
	metrics := newCountingMetrics()
	ok := &recordingSink{name: "ok"}
	broken := &recordingSink{name: "broken", err: errors.New("unavailable")}
	d := NewDispatcher(metrics, broken, panickingSink{}, ok)

	d.Publish(context.Background(), sampleEvents(uuid.New()))
	d.Wait()

	assert.Len(t, ok.events(), 2)
	assert.Len(t, broken.events(), 2)
	assert.Equal(t, 1, metrics.published["ok/proposal_status_changed"])
	assert.Equal(t, 1, metrics.published["ok/evaluator_assigned"])
	assert.Equal(t, 1, metrics.failed["broken"])
	assert.Zero(t, metrics.published["broken/evaluator_assigned"])
}

// slowSink задерживает первый пакет и считает одновременные доставки.
type slowSink struct {
	mu          sync.Mutex
	inflight    int
	maxInflight int
	order       []uuid.UUID
}

func (s *slowSink) Name() string { return "slow" }

func (s *slowSink) Deliver(ctx context.Context, events []entity.Event) error {
	s.mu.Lock()
	s.inflight++
	s.maxInflight = max(s.maxInflight, s.inflight)
	first := len(s.order) == 0
	s.mu.Unlock()

	if first {
		time.Sleep(20 * time.Millisecond)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	for _, e := range events {
		s.order = append(s.order, e.ID)
	}
	return nil
}

func TestDispatcher_PreservesPublishOrderPerSink(t *testing.T) {
	sink := &slowSink{}
	audit := &recordingSink{name: "audit"}
	d := NewDispatcher(nil, sink, audit)

	var want []uuid.UUID
	for i := 0; i < 10; i++ {
		batch := sampleEvents()
		for _, e := range batch {
			want = append(want, e.ID)
		}
		d.Publish(context.Background(), batch)
	}
	d.Wait()

	assert.Equal(t, want, sink.order)
	assert.Equal(t, 1, sink.maxInflight)
	got := make([]uuid.UUID, 0, len(want))
	for _, e := range audit.events() {
		got = append(got, e.ID)
	}
	assert.Equal(t, want, got)
}

func TestDispatcher_SurvivesCancelledRequest(t *testing.T) {
	sink := &recordingSink{name: "ok"}
	d := NewDispatcher(nil, sink)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d.Publish(ctx, sampleEvents())
	d.Wait()

	assert.Len(t, sink.events(), 2)
}

func TestDispatcher_EmptyBatch(t *testing.T) {
	sink := &recordingSink{name: "ok"}
	d := NewDispatcher(nil, sink)

	d.Publish(context.Background(), nil)
	d.Wait()

	assert.Empty(t, sink.events())
}

func TestAuditSink_LogsEveryEvent(t *testing.T) {
	log, hook := test.NewNullLogger()
	sink := NewAuditSink(logrus.NewEntry(log))

	require.NoError(t, sink.Deliver(context.Background(), sampleEvents()))

	require.Len(t, hook.AllEntries(), 2)
	entry := hook.AllEntries()[0]
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, entity.EventProposalStatusChanged, entry.Data["event_type"])
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	sent   map[uuid.UUID][]string
	failOn uuid.UUID
}

func (b *fakeBroadcaster) BroadcastToUser(ctx context.Context, userID uuid.UUID, eventType string, data any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if userID == b.failOn {
		return errors.New("offline")
	}
	if b.sent == nil {
		b.sent = map[uuid.UUID][]string{}
	}
	b.sent[userID] = append(b.sent[userID], eventType)
	return nil
}

func TestHubSink_SendsToEveryRecipient(t *testing.T) {
	first, second, failing := uuid.New(), uuid.New(), uuid.New()
	hub := &fakeBroadcaster{failOn: failing}
	sink := NewHubSink(hub)

	err := sink.Deliver(context.Background(), sampleEvents(first, failing, second))

	assert.Error(t, err)
	assert.Equal(t, []string{"proposal_status_changed", "evaluator_assigned"}, hub.sent[first])
	assert.Equal(t, []string{"proposal_status_changed", "evaluator_assigned"}, hub.sent[second])
}

type fakeNotifier struct {
	delivered []uuid.UUID
	err       error
}

func (n *fakeNotifier) Deliver(ctx context.Context, e entity.Event) (int, error) {
	if n.err != nil {
		return 0, n.err
	}
	n.delivered = append(n.delivered, e.ID)
	return len(e.Recipients), nil
}

func TestNotificationSink(t *testing.T) {
	notifier := &fakeNotifier{}
	batch := sampleEvents(uuid.New())

	require.NoError(t, NewNotificationSink(notifier).Deliver(context.Background(), batch))
	assert.Equal(t, []uuid.UUID{batch[0].ID, batch[1].ID}, notifier.delivered)

	failing := &fakeNotifier{err: errors.New("db down")}
	assert.Error(t, NewNotificationSink(failing).Deliver(context.Background(), batch))
}

type published struct {
	subject string
	data    []byte
}

type fakeJetStream struct {
	mu   sync.Mutex
	msgs []published
}

func (f *fakeJetStream) Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{subject: subject, data: data})
	return &jetstream.PubAck{Stream: StreamName, Sequence: uint64(len(f.msgs))}, nil
}

func TestNATSSink_PublishesBySubject(t *testing.T) {
	js := &fakeJetStream{}
	sink := NewNATSSink(js, "proposals.events.")
	batch := sampleEvents(uuid.New())

	require.NoError(t, sink.Deliver(context.Background(), batch))

	require.Len(t, js.msgs, 2)
	assert.Equal(t, "proposals.events.proposal_status_changed", js.msgs[0].subject)
	assert.Equal(t, "proposals.events.evaluator_assigned", js.msgs[1].subject)

	var decoded entity.Event
	require.NoError(t, json.Unmarshal(js.msgs[0].data, &decoded))
	assert.Equal(t, batch[0].ID, decoded.ID)
	assert.Equal(t, batch[0].ProposalID, decoded.ProposalID)
}
