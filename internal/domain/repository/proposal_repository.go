package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
)

type ProposalFilter struct {
	Status      *valueobject.ProposalStatus
	ProponentID *uuid.UUID
	EvaluatorID *uuid.UUID
	Limit       int
	Offset      int
}

type ProposalRepository interface {
	// Create сохраняет новую заявку вместе с первой версией и её бюджетом.
	Create(ctx context.Context, proposal *entity.Proposal) error
	// FindByID загружает агрегат целиком: версии, назначения, оценки, решения.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error)
	List(ctx context.Context, filter ProposalFilter) ([]*entity.Proposal, int, error)
	// Save фиксирует ChangeSet, только если заявка всё ещё находится в состоянии expected.
	// Иначе возвращает STALE_STATE и ничего не меняет.
	Save(ctx context.Context, proposal *entity.Proposal, expected entity.StateToken) error
	// AppendRating добавляет оценку и завершает назначение, не блокируя строку заявки.
	AppendRating(ctx context.Context, rating *entity.EvaluatorRating, assignmentID uuid.UUID) error
	FindExpiredRevisionIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	FindOverdueAssignmentProposalIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}
