package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/service"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newSubmittedProposal(t *testing.T) (*entity.Proposal, entity.Actor) {
	t.Helper()
	proponent := entity.Actor{ID: uuid.New(), Role: valueobject.RoleProponent}
	line, err := entity.NewBudgetLine("GAA", 100000, 50000, 25000)
	require.NoError(t, err)
	p, err := entity.NewProposal(proponent.ID, "Солнечные панели для кампуса", "Энергетика", "engineering", entity.DocumentVersion{
		DocumentRef: "documents/v1.pdf",
		BudgetLines: []entity.BudgetLine{line},
	}, false, baseTime)
	require.NoError(t, err)
	p.PullEvents()
	return p, proponent
}

func staff() entity.Actor {
	return entity.Actor{ID: uuid.New(), Role: valueobject.RoleRnDStaff}
}

func evaluatorActor(id uuid.UUID) entity.Actor {
	return entity.Actor{ID: id, Role: valueobject.RoleEvaluator}
}

func newEvaluator(t *testing.T, department string, maxWorkload, current int) *entity.Evaluator {
	t.Helper()
	ev, err := entity.NewEvaluator(uuid.New(), "Эксперт", department, []string{"energy"}, maxWorkload, baseTime)
	require.NoError(t, err)
	ev.CurrentWorkload = current
	return ev
}

func index(evaluators ...*entity.Evaluator) map[uuid.UUID]*entity.Evaluator {
	m := make(map[uuid.UUID]*entity.Evaluator, len(evaluators))
	for _, ev := range evaluators {
		m[ev.ID] = ev
	}
	return m
}

func ids(evaluators ...*entity.Evaluator) []uuid.UUID {
	result := make([]uuid.UUID, 0, len(evaluators))
	for _, ev := range evaluators {
		result = append(result, ev.ID)
	}
	return result
}

func mustRevisions(t *testing.T) *service.RevisionManager {
	t.Helper()
	m, err := service.NewRevisionManager(nil, "")
	require.NoError(t, err)
	return m
}
