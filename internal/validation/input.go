package validation

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"
)

// Константы валидации входных данных HTTP
const (
	MaxProposalTitleLength    = 300
	MaxProgramTitleLength     = 300
	MaxDepartmentLength       = 100
	MaxEvaluatorNameLength    = 200
	MaxSpecialtyLength        = 50
	MaxSpecialtiesCount       = 20
	MaxDocumentRefLength      = 500
	MaxRevisionResponseLength = 5000
	MaxBudgetLines            = 50
	MaxEvaluatorsPerRequest   = 20
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

func ValidateProposalTitle(title string) error {
	if err := ValidateNonEmpty("название заявки", title); err != nil {
		return err
	}
	return ValidateLength("название заявки", strings.TrimSpace(title), 1, MaxProposalTitleLength)
}

func ValidateProgramTitle(title string) error {
	return ValidateLength("название программы", strings.TrimSpace(title), 0, MaxProgramTitleLength)
}

func ValidateDepartment(department string) error {
	return ValidateLength("подразделение", strings.TrimSpace(department), 0, MaxDepartmentLength)
}

func ValidateEvaluatorName(name string) error {
	if err := ValidateNonEmpty("имя эксперта", name); err != nil {
		return err
	}
	return ValidateLength("имя эксперта", strings.TrimSpace(name), 1, MaxEvaluatorNameLength)
}

// ValidateSpecialties проверяет список специализаций эксперта.
func ValidateSpecialties(specialties []string) error {
	if len(specialties) > MaxSpecialtiesCount {
		return fmt.Errorf("количество специализаций не может превышать %d", MaxSpecialtiesCount)
	}

	seen := make(map[string]bool)
	for _, specialty := range specialties {
		specialty = strings.TrimSpace(specialty)
		if specialty == "" {
			return fmt.Errorf("специализация не может быть пустой")
		}
		if utf8.RuneCountInString(specialty) > MaxSpecialtyLength {
			return fmt.Errorf("специализация не может быть длиннее %d символов", MaxSpecialtyLength)
		}

		// дубликаты без учета регистра
		key := strings.ToLower(specialty)
		if seen[key] {
			return fmt.Errorf("специализация '%s' указана дважды", specialty)
		}
		seen[key] = true
	}
	return nil
}

// ValidateDocumentRef принимает ссылку из хранилища документов или внешний http(s) URL.
func ValidateDocumentRef(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if err := ValidateLength("ссылка на документ", ref, 0, MaxDocumentRefLength); err != nil {
		return err
	}

	if strings.Contains(ref, "://") {
		parsedURL, err := url.Parse(ref)
		if err != nil {
			return fmt.Errorf("некорректный формат URL документа")
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("ссылка на документ должна начинаться с http:// или https://")
		}
		if parsedURL.Host == "" {
			return fmt.Errorf("ссылка на документ должна содержать доменное имя")
		}
		return nil
	}

	if strings.HasPrefix(ref, "/") || strings.Contains(ref, "\\") {
		return fmt.Errorf("ссылка на документ должна быть относительной")
	}
	if clean := path.Clean(ref); clean != ref || strings.HasPrefix(clean, "..") {
		return fmt.Errorf("некорректная ссылка на документ")
	}
	return nil
}

func ValidateRevisionResponse(response *string) error {
	if response == nil {
		return nil
	}
	return ValidateLength("ответ на замечания", strings.TrimSpace(*response), 0, MaxRevisionResponseLength)
}

func ValidateBudgetLineCount(count int) error {
	if count > MaxBudgetLines {
		return fmt.Errorf("количество строк бюджета не может превышать %d", MaxBudgetLines)
	}
	return nil
}

func ValidateEvaluatorCount(count int) error {
	if count > MaxEvaluatorsPerRequest {
		return fmt.Errorf("за один запрос можно назначить не более %d экспертов", MaxEvaluatorsPerRequest)
	}
	return nil
}
