package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/research-review/internal/domain/entity"
)

type EvaluatorFilter struct {
	Department    string
	Specialty     string
	AvailableOnly bool
}

// EvaluatorRepository заполняет CurrentWorkload каждого возвращаемого эксперта.
type EvaluatorRepository interface {
	Create(ctx context.Context, evaluator *entity.Evaluator) error
	Update(ctx context.Context, evaluator *entity.Evaluator) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Evaluator, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Evaluator, error)
	List(ctx context.Context, filter EvaluatorFilter) ([]*entity.Evaluator, error)
}
