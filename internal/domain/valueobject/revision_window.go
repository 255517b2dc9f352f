package valueobject

import (
	"time"

	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

// RevisionWindow: именованный срок доработки.
type RevisionWindow struct {
	Name string
	Days int
}

func (w RevisionWindow) Duration() time.Duration {
	return time.Duration(w.Days) * 24 * time.Hour
}

const DefaultRevisionWindowName = "2_weeks"

// DefaultRevisionWindows повторяет варианты, доступные в форме возврата на доработку.
func DefaultRevisionWindows() []RevisionWindow {
	return []RevisionWindow{
		{Name: "1_week", Days: 7},
		{Name: "2_weeks", Days: 14},
		{Name: "3_weeks", Days: 21},
		{Name: "1_month", Days: 30},
		{Name: "6_weeks", Days: 42},
		{Name: "2_months", Days: 60},
	}
}

func NewRevisionWindow(name string, days int) (RevisionWindow, error) {
	if name == "" {
		return RevisionWindow{}, apperror.New(apperror.ErrCodeValidation, "имя срока доработки обязательно")
	}
	if days <= 0 {
		return RevisionWindow{}, apperror.New(apperror.ErrCodeValidation, "срок доработки должен быть положительным")
	}
	return RevisionWindow{Name: name, Days: days}, nil
}
