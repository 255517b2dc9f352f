package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

type BudgetLineInput struct {
	Source string
	PS     float64
	MOOE   float64
	CO     float64
}

type LedgerLine struct {
	entity.BudgetLine
	Total float64
}

// Ledger: бюджет одной версии заявки. Итоги считаются при каждом построении.
type Ledger struct {
	Version int
	Lines   []LedgerLine
	Totals  entity.BudgetTotals
}

// BuildBudgetLines проверяет строки бюджета версии: хотя бы одна строка,
// источники не повторяются, суммы неотрицательны.
func BuildBudgetLines(inputs []BudgetLineInput) ([]entity.BudgetLine, error) {
	if len(inputs) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "нужен хотя бы один источник финансирования")
	}
	seen := make(map[string]struct{}, len(inputs))
	lines := make([]entity.BudgetLine, 0, len(inputs))
	for i, in := range inputs {
		line, err := entity.NewBudgetLine(in.Source, in.PS, in.MOOE, in.CO)
		if err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, lineError(i, err))
		}
		key := strings.ToLower(line.Source)
		if _, ok := seen[key]; ok {
			return nil, apperror.Newf(apperror.ErrCodeValidation, "строка бюджета %d: источник %q указан повторно", i+1, line.Source)
		}
		seen[key] = struct{}{}
		lines = append(lines, line)
	}
	return lines, nil
}

func lineError(i int, err error) string {
	msg := err.Error()
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	return fmt.Sprintf("строка бюджета %d: %s", i+1, msg)
}

// BuildLedger строит бюджет указанной версии. Версии не смешиваются.
func BuildLedger(p *entity.Proposal, version int) (Ledger, error) {
	if version == 0 {
		version = p.DocumentVersion
	}
	v, ok := p.Version(version)
	if !ok {
		return Ledger{}, apperror.Newf(apperror.ErrCodeNotFound, "версия %d не найдена", version)
	}
	ledger := Ledger{Version: v.Version, Lines: make([]LedgerLine, 0, len(v.BudgetLines))}
	for _, line := range v.BudgetLines {
		ledger.Lines = append(ledger.Lines, LedgerLine{BudgetLine: line, Total: line.Total()})
	}
	ledger.Totals = entity.SumBudgetLines(v.BudgetLines)
	return ledger, nil
}
