package valueobject

import (
	"math"

	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

// ValidateAmount проверяет денежную сумму статьи бюджета.
func ValidateAmount(field string, amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return apperror.Newf(apperror.ErrCodeValidation, "%s: некорректная сумма", field)
	}
	if amount < 0 {
		return apperror.Newf(apperror.ErrCodeValidation, "%s: сумма не может быть отрицательной", field)
	}
	return nil
}
