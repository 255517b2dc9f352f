package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/ignatzorin/research-review/internal/domain/entity"
)

// StreamName: поток JetStream для событий заявок.
const StreamName = "PROPOSAL_EVENTS"

// Publisher: часть jetstream.JetStream, нужная приёмнику.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSSink публикует каждое событие в <prefix>.<event_type>.
// ID события уходит в Nats-Msg-Id, поэтому повторная публикация отбрасывается сервером.
type NATSSink struct {
	js     Publisher
	prefix string
}

func NewNATSSink(js Publisher, prefix string) *NATSSink {
	return &NATSSink{js: js, prefix: strings.TrimSuffix(prefix, ".")}
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Subject(eventType entity.EventType) string {
	return s.prefix + "." + string(eventType)
}

func (s *NATSSink) Deliver(ctx context.Context, events []entity.Event) error {
	var errs []error
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			errs = append(errs, fmt.Errorf("nats: marshal event %s: %w", e.ID, err))
			continue
		}
		if _, err := s.js.Publish(ctx, s.Subject(e.Type), data, jetstream.WithMsgID(e.ID.String())); err != nil {
			errs = append(errs, fmt.Errorf("nats: publish %s: %w", e.Type, err))
		}
	}
	return errors.Join(errs...)
}

// NATSConnection: подключение к NATS с потоком под события заявок.
type NATSConnection struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// ConnectNATS подключается к серверу и создаёт поток, если его ещё нет.
func ConnectNATS(ctx context.Context, url, prefix string) (*NATSConnection, error) {
	conn, err := nats.Connect(url, nats.Name("research-review"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := js.CreateOrUpdateStream(streamCtx, jetstream.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{strings.TrimSuffix(prefix, ".") + ".>"},
		Storage:    jetstream.FileStorage,
		MaxAge:     30 * 24 * time.Hour,
		Duplicates: 2 * time.Minute,
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create stream %s: %w", StreamName, err)
	}

	return &NATSConnection{conn: conn, js: js}, nil
}

func (c *NATSConnection) JetStream() jetstream.JetStream {
	return c.js
}

// Close дожидается отправки буфера и закрывает подключение.
func (c *NATSConnection) Close() {
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}
