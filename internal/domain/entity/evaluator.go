package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

// Evaluator: эксперт. ID совпадает с идентификатором его учётной записи.
type Evaluator struct {
	ID          uuid.UUID
	Name        string
	Department  string
	Specialties []string
	MaxWorkload int
	// CurrentWorkload заполняется хранилищем: число активных назначений.
	CurrentWorkload int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewEvaluator(id uuid.UUID, name, department string, specialties []string, maxWorkload int, now time.Time) (*Evaluator, error) {
	e := &Evaluator{ID: id, CreatedAt: now}
	if err := e.Update(name, department, specialties, maxWorkload, now); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Evaluator) Update(name, department string, specialties []string, maxWorkload int, now time.Time) error {
	name = strings.TrimSpace(name)
	department = strings.TrimSpace(department)
	if e.ID == uuid.Nil {
		return apperror.New(apperror.ErrCodeValidation, "идентификатор эксперта обязателен")
	}
	if name == "" {
		return apperror.New(apperror.ErrCodeValidation, "имя эксперта обязательно")
	}
	if department == "" {
		return apperror.New(apperror.ErrCodeValidation, "подразделение эксперта обязательно")
	}
	if maxWorkload < 1 {
		return apperror.New(apperror.ErrCodeValidation, "максимальная нагрузка должна быть не меньше 1")
	}
	e.Name = name
	e.Department = department
	e.Specialties = normalizeTags(specialties)
	e.MaxWorkload = maxWorkload
	e.UpdatedAt = now
	return nil
}

func (e *Evaluator) Availability() valueobject.Availability {
	if e.CurrentWorkload >= e.MaxWorkload {
		return valueobject.AvailabilityBusy
	}
	return valueobject.AvailabilityAvailable
}

func (e *Evaluator) IsAvailable() bool {
	return e.Availability() == valueobject.AvailabilityAvailable
}

func (e *Evaluator) HasSpecialty(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, s := range e.Specialties {
		if s == tag {
			return true
		}
	}
	return false
}

func (e *Evaluator) InDepartment(department string) bool {
	return strings.EqualFold(e.Department, strings.TrimSpace(department))
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}
