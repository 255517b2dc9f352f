package service_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/research-review/internal/domain/service"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

func TestBuildBudgetLines(t *testing.T) {
	cases := []struct {
		name  string
		lines []service.BudgetLineInput
		ok    bool
	}{
		{"valid", []service.BudgetLineInput{{Source: "GAA", PS: 1, MOOE: 2, CO: 3}, {Source: "LGU"}}, true},
		{"empty", nil, false},
		{"blank source", []service.BudgetLineInput{{Source: "  ", PS: 1}}, false},
		{"long source", []service.BudgetLineInput{{Source: strings.Repeat("a", 101)}}, false},
		{"negative", []service.BudgetLineInput{{Source: "GAA", MOOE: -1}}, false},
		{"duplicate source", []service.BudgetLineInput{{Source: "GAA"}, {Source: "gaa"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.BuildBudgetLines(tc.lines)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperror.IsValidation(err))
		})
	}
}

func TestBuildLedger_TotalsPerVersion(t *testing.T) {
	m := mustRevisions(t)
	p, proponent := newSubmittedProposal(t)
	p.Status = "revision_rnd"
	deadline := baseTime.AddDate(0, 0, 14)
	p.RevisionDeadline = &deadline

	require.NoError(t, m.Resubmit(p, service.ResubmitInput{
		DocumentRef: "documents/v2.pdf",
		BudgetLines: []service.BudgetLineInput{
			{Source: "DOST", PS: 1000, MOOE: 250.5, CO: 0},
			{Source: "Partner", PS: 0, MOOE: 100, CO: 49.5},
		},
	}, proponent, baseTime))

	v1, err := service.BuildLedger(p, 1)
	require.NoError(t, err)
	assert.InDelta(t, 175000, v1.Totals.Total, 1e-9)

	v2, err := service.BuildLedger(p, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	assert.InDelta(t, 1250.5, v2.Lines[0].Total, 1e-9)
	assert.InDelta(t, 1000, v2.Totals.PS, 1e-9)
	assert.InDelta(t, 350.5, v2.Totals.MOOE, 1e-9)
	assert.InDelta(t, 49.5, v2.Totals.CO, 1e-9)
	assert.InDelta(t, 1400, v2.Totals.Total, 1e-9)

	_, err = service.BuildLedger(p, 3)
	assert.True(t, apperror.IsNotFound(err))
}
