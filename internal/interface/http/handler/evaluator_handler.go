package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/research-review/internal/domain/repository"
	"github.com/ignatzorin/research-review/internal/interface/http/dto"
	"github.com/ignatzorin/research-review/internal/interface/http/response"
	"github.com/ignatzorin/research-review/internal/usecase/evaluator"
	"github.com/ignatzorin/research-review/internal/validation"
)

type EvaluatorHandler struct {
	directory *evaluator.DirectoryUseCase
}

func NewEvaluatorHandler(directory *evaluator.DirectoryUseCase) *EvaluatorHandler {
	return &EvaluatorHandler{directory: directory}
}

func (h *EvaluatorHandler) ListEvaluators(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	filter := repository.EvaluatorFilter{
		Department:    c.Query("department"),
		Specialty:     c.Query("specialty"),
		AvailableOnly: c.Query("available") == "true",
	}
	items, err := h.directory.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToEvaluatorResponses(items))
}

func (h *EvaluatorHandler) RegisterEvaluator(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req dto.EvaluatorRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := validateEvaluator(req); err != nil {
		response.Error(c, validationError(err))
		return
	}

	ev, err := h.directory.Register(c.Request.Context(), actor, evaluatorInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToEvaluatorResponse(ev))
}

func (h *EvaluatorHandler) UpdateEvaluator(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "некорректный ID эксперта")
	if !ok {
		return
	}

	var req dto.EvaluatorRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ID = id
	if err := validateEvaluator(req); err != nil {
		response.Error(c, validationError(err))
		return
	}

	ev, err := h.directory.Update(c.Request.Context(), actor, evaluatorInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToEvaluatorResponse(ev))
}

func validateEvaluator(req dto.EvaluatorRequest) error {
	if err := validation.ValidateEvaluatorName(req.Name); err != nil {
		return err
	}
	if err := validation.ValidateNonEmpty("подразделение", req.Department); err != nil {
		return err
	}
	if err := validation.ValidateDepartment(req.Department); err != nil {
		return err
	}
	return validation.ValidateSpecialties(req.Specialties)
}

func evaluatorInput(req dto.EvaluatorRequest) evaluator.EvaluatorInput {
	return evaluator.EvaluatorInput{
		ID:          req.ID,
		Name:        req.Name,
		Department:  req.Department,
		Specialties: req.Specialties,
		MaxWorkload: req.MaxWorkload,
	}
}
