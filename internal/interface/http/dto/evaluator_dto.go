package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
)

type EvaluatorRequest struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name" binding:"required"`
	Department  string    `json:"department" binding:"required"`
	Specialties []string  `json:"specialties"`
	MaxWorkload int       `json:"max_workload" binding:"required,min=1"`
}

type EvaluatorResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Department      string    `json:"department"`
	Specialties     []string  `json:"specialties"`
	MaxWorkload     int       `json:"max_workload"`
	CurrentWorkload int       `json:"current_workload"`
	Availability    string    `json:"availability"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func ToEvaluatorResponse(ev *entity.Evaluator) EvaluatorResponse {
	specialties := ev.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	return EvaluatorResponse{
		ID:              ev.ID,
		Name:            ev.Name,
		Department:      ev.Department,
		Specialties:     specialties,
		MaxWorkload:     ev.MaxWorkload,
		CurrentWorkload: ev.CurrentWorkload,
		Availability:    string(ev.Availability()),
		UpdatedAt:       ev.UpdatedAt,
	}
}

func ToEvaluatorResponses(evaluators []*entity.Evaluator) []EvaluatorResponse {
	responses := make([]EvaluatorResponse, 0, len(evaluators))
	for _, ev := range evaluators {
		responses = append(responses, ToEvaluatorResponse(ev))
	}
	return responses
}
