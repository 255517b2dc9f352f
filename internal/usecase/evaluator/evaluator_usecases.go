package evaluator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/repository"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

type EvaluatorInput struct {
	ID          uuid.UUID
	Name        string
	Department  string
	Specialties []string
	MaxWorkload int
}

// DirectoryUseCase: справочник экспертов. Изменять его могут сотрудники R&D и администраторы.
type DirectoryUseCase struct {
	repo repository.EvaluatorRepository
	now  func() time.Time
}

func NewDirectoryUseCase(repo repository.EvaluatorRepository, now func() time.Time) *DirectoryUseCase {
	if now == nil {
		now = time.Now
	}
	return &DirectoryUseCase{repo: repo, now: now}
}

func (uc *DirectoryUseCase) Register(ctx context.Context, actor entity.Actor, input EvaluatorInput) (*entity.Evaluator, error) {
	if !actor.Role.IsStaff() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "регистрировать экспертов может только сотрудник")
	}
	ev, err := entity.NewEvaluator(input.ID, input.Name, input.Department, input.Specialties, input.MaxWorkload, uc.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Create(ctx, ev); err != nil {
		return nil, wrapStorage(err, "не удалось сохранить эксперта")
	}
	return ev, nil
}

func (uc *DirectoryUseCase) Update(ctx context.Context, actor entity.Actor, input EvaluatorInput) (*entity.Evaluator, error) {
	if !actor.Role.IsStaff() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "изменять экспертов может только сотрудник")
	}
	ev, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, wrapStorage(err, "не удалось загрузить эксперта")
	}
	if err := ev.Update(input.Name, input.Department, input.Specialties, input.MaxWorkload, uc.now().UTC()); err != nil {
		return nil, err
	}
	if err := uc.repo.Update(ctx, ev); err != nil {
		return nil, wrapStorage(err, "не удалось обновить эксперта")
	}
	return ev, nil
}

func (uc *DirectoryUseCase) List(ctx context.Context, actor entity.Actor, filter repository.EvaluatorFilter) ([]*entity.Evaluator, error) {
	if !actor.Role.IsStaff() {
		return nil, apperror.ErrForbidden
	}
	items, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, wrapStorage(err, "не удалось получить список экспертов")
	}
	return items, nil
}

func wrapStorage(err error, message string) error {
	if apperror.CodeOf(err) != apperror.ErrCodeInternal {
		return err
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, message)
}
