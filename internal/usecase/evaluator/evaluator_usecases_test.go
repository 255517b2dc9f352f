package evaluator_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/repository"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/infrastructure/memory"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
	"github.com/ignatzorin/research-review/internal/usecase/evaluator"
)

func fixedNow() time.Time {
	return time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
}

func TestDirectory_RegisterAndList(t *testing.T) {
	ctx := context.Background()
	uc := evaluator.NewDirectoryUseCase(memory.NewStore().Evaluators(), fixedNow)
	staff := entity.Actor{ID: uuid.New(), Role: valueobject.RoleRnDStaff}

	_, err := uc.Register(ctx, staff, evaluator.EvaluatorInput{ID: uuid.New(), Name: "Б. Экспертов", Department: "Agriculture", Specialties: []string{"Soil", "soil", " irrigation "}, MaxWorkload: 3})
	require.NoError(t, err)
	_, err = uc.Register(ctx, staff, evaluator.EvaluatorInput{ID: uuid.New(), Name: "А. Инженеров", Department: "engineering", Specialties: []string{"energy"}, MaxWorkload: 1})
	require.NoError(t, err)

	all, err := uc.List(ctx, staff, repository.EvaluatorFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "А. Инженеров", all[0].Name)
	assert.Equal(t, valueobject.AvailabilityAvailable, all[0].Availability())

	agri, err := uc.List(ctx, staff, repository.EvaluatorFilter{Department: "agriculture", Specialty: "SOIL"})
	require.NoError(t, err)
	require.Len(t, agri, 1)
	assert.Equal(t, []string{"soil", "irrigation"}, agri[0].Specialties)
}

func TestDirectory_Rules(t *testing.T) {
	ctx := context.Background()
	uc := evaluator.NewDirectoryUseCase(memory.NewStore().Evaluators(), fixedNow)
	staff := entity.Actor{ID: uuid.New(), Role: valueobject.RoleAdmin}
	proponent := entity.Actor{ID: uuid.New(), Role: valueobject.RoleProponent}
	id := uuid.New()

	_, err := uc.Register(ctx, proponent, evaluator.EvaluatorInput{ID: id, Name: "X", Department: "d", MaxWorkload: 1})
	assert.True(t, apperror.IsForbidden(err))

	_, err = uc.Register(ctx, staff, evaluator.EvaluatorInput{ID: id, Name: "X", Department: "d", MaxWorkload: 0})
	assert.True(t, apperror.IsValidation(err))

	_, err = uc.Register(ctx, staff, evaluator.EvaluatorInput{ID: id, Name: "X", Department: "d", MaxWorkload: 1})
	require.NoError(t, err)
	_, err = uc.Register(ctx, staff, evaluator.EvaluatorInput{ID: id, Name: "X", Department: "d", MaxWorkload: 1})
	assert.True(t, apperror.IsCode(err, apperror.ErrCodeConflict))

	updated, err := uc.Update(ctx, staff, evaluator.EvaluatorInput{ID: id, Name: "Y", Department: "d", MaxWorkload: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.MaxWorkload)

	_, err = uc.Update(ctx, staff, evaluator.EvaluatorInput{ID: uuid.New(), Name: "Y", Department: "d", MaxWorkload: 4})
	assert.True(t, apperror.IsNotFound(err))

	_, err = uc.List(ctx, proponent, repository.EvaluatorFilter{})
	assert.True(t, apperror.IsForbidden(err))
}
