package entity

import (
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

const MaxBudgetSourceLength = 100

// BudgetLine: строка бюджета по одному источнику финансирования.
type BudgetLine struct {
	Source string
	PS     float64
	MOOE   float64
	CO     float64
}

func NewBudgetLine(source string, ps, mooe, co float64) (BudgetLine, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return BudgetLine{}, apperror.New(apperror.ErrCodeValidation, "источник финансирования обязателен")
	}
	if utf8.RuneCountInString(source) > MaxBudgetSourceLength {
		return BudgetLine{}, apperror.Newf(apperror.ErrCodeValidation, "источник финансирования не должен превышать %d символов", MaxBudgetSourceLength)
	}
	if err := valueobject.ValidateAmount("ps", ps); err != nil {
		return BudgetLine{}, err
	}
	if err := valueobject.ValidateAmount("mooe", mooe); err != nil {
		return BudgetLine{}, err
	}
	if err := valueobject.ValidateAmount("co", co); err != nil {
		return BudgetLine{}, err
	}
	return BudgetLine{Source: source, PS: ps, MOOE: mooe, CO: co}, nil
}

func (l BudgetLine) Total() float64 {
	return l.PS + l.MOOE + l.CO
}

// BudgetTotals всегда вычисляется из строк и нигде не хранится.
type BudgetTotals struct {
	PS    float64
	MOOE  float64
	CO    float64
	Total float64
}

func SumBudgetLines(lines []BudgetLine) BudgetTotals {
	var totals BudgetTotals
	for _, line := range lines {
		totals.PS += line.PS
		totals.MOOE += line.MOOE
		totals.CO += line.CO
		totals.Total += line.Total()
	}
	return totals
}
