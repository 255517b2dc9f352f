package entity

import "time"

// DocumentVersion: материалы заявки, поданные в рамках одной версии.
type DocumentVersion struct {
	Version          int
	DocumentRef      string
	RevisionResponse *string
	BudgetLines      []BudgetLine
	SubmittedAt      time.Time
}

func (v DocumentVersion) Totals() BudgetTotals {
	return SumBudgetLines(v.BudgetLines)
}

func (v DocumentVersion) clone() DocumentVersion {
	c := v
	c.BudgetLines = append([]BudgetLine(nil), v.BudgetLines...)
	if v.RevisionResponse != nil {
		response := *v.RevisionResponse
		c.RevisionResponse = &response
	}
	return c
}
