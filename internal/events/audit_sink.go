package events

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/logger"
)

// AuditSink пишет каждое событие в структурированный журнал.
type AuditSink struct {
	log *logrus.Entry
}

func NewAuditSink(log *logrus.Entry) *AuditSink {
	if log == nil {
		log = logger.Component("audit")
	}
	return &AuditSink{log: log}
}

func (s *AuditSink) Name() string { return "audit" }

func (s *AuditSink) Deliver(ctx context.Context, events []entity.Event) error {
	for _, e := range events {
		s.log.WithFields(logrus.Fields{
			"event_id":         e.ID,
			"event_type":       e.Type,
			"proposal_id":      e.ProposalID,
			"document_version": e.DocumentVersion,
			"actor_id":         e.ActorID,
			"actor_role":       e.ActorRole,
			"recipients":       len(e.Recipients),
			"payload":          e.Payload,
		}).Info("workflow event")
	}
	return nil
}
