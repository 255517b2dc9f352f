package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/repository"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/interface/http/dto"
	"github.com/ignatzorin/research-review/internal/interface/http/response"
	"github.com/ignatzorin/research-review/internal/usecase/proposal"
	"github.com/ignatzorin/research-review/internal/validation"
)

type ProposalHandler struct {
	uc *proposal.UseCases
}

func NewProposalHandler(uc *proposal.UseCases) *ProposalHandler {
	return &ProposalHandler{uc: uc}
}

func (h *ProposalHandler) CreateProposal(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req dto.CreateProposalRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := validateCreate(req); err != nil {
		response.Error(c, validationError(err))
		return
	}

	result, err := h.uc.Create.Execute(c.Request.Context(), actor, proposal.CreateProposalInput{
		Title:        req.Title,
		ProgramTitle: req.ProgramTitle,
		Department:   req.Department,
		DocumentRef:  req.DocumentRef,
		BudgetLines:  dto.ToBudgetLineInputs(req.BudgetLines),
		Draft:        req.Draft,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToWorkflowResponse(result.Proposal, result.Events, actor))
}

func validateCreate(req dto.CreateProposalRequest) error {
	if err := validation.ValidateProposalTitle(req.Title); err != nil {
		return err
	}
	if err := validation.ValidateProgramTitle(req.ProgramTitle); err != nil {
		return err
	}
	if err := validation.ValidateDepartment(req.Department); err != nil {
		return err
	}
	if err := validation.ValidateDocumentRef(req.DocumentRef); err != nil {
		return err
	}
	return validation.ValidateBudgetLineCount(len(req.BudgetLines))
}

func (h *ProposalHandler) ListProposals(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	filter := repository.ProposalFilter{
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		status, err := valueobject.NewProposalStatus(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.Status = &status
	}
	var err error
	if filter.ProponentID, err = parseUUIDQuery(c, "proponent_id"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.EvaluatorID, err = parseUUIDQuery(c, "evaluator_id"); err != nil {
		response.Error(c, err)
		return
	}

	items, total, err := h.uc.List.Execute(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	response.Paginated(c, dto.ToProposalResponses(items, actor), total, limit, max(filter.Offset, 0))
}

func (h *ProposalHandler) GetProposal(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "некорректный ID заявки")
	if !ok {
		return
	}

	p, err := h.uc.Get.Execute(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToProposalResponse(p, actor))
}

func (h *ProposalHandler) GetBudgetLedger(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "некорректный ID заявки")
	if !ok {
		return
	}

	ledger, err := h.uc.Ledger.Execute(c.Request.Context(), actor, id, parseIntQuery(c, "version", 0))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToLedgerResponse(ledger))
}

func (h *ProposalHandler) ListDecisions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "некорректный ID заявки")
	if !ok {
		return
	}

	decisions, err := h.uc.Decisions.Execute(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDecisionResponses(decisions))
}

func (h *ProposalHandler) SubmitDraft(c *gin.Context) {
	h.transition(c, h.uc.Submit.Execute)
}

func (h *ProposalHandler) ClaimReview(c *gin.Context) {
	h.transition(c, h.uc.Claim.Execute)
}

type transitionFunc func(ctx context.Context, actor entity.Actor, id uuid.UUID, expected *entity.StateToken) (*proposal.Result, error)

// transition обслуживает операции, у которых в теле только ожидаемое состояние.
func (h *ProposalHandler) transition(c *gin.Context, execute transitionFunc) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "некорректный ID заявки")
	if !ok {
		return
	}

	var req dto.TransitionRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	expected, err := req.Token()
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := execute(c.Request.Context(), actor, id, expected)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToWorkflowResponse(result.Proposal, result.Events, actor))
}

func (h *ProposalHandler) RecordDecision(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "некорректный ID заявки")
	if !ok {
		return
	}

	var req dto.DecisionRequest
	if !bindJSON(c, &req) {
		return
	}
	gate, err := valueobject.NewGate(req.Gate)
	if err != nil {
		response.Error(c, err)
		return
	}
	kind, err := valueobject.NewDecisionKind(req.Decision)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := validation.ValidateDocumentRef(req.FundingDocumentRef); err != nil {
		response.Error(c, validationError(err))
		return
	}
	expected, err := req.Token()
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.uc.Decide.Execute(c.Request.Context(), actor, proposal.RecordDecisionInput{
		ProposalID:         id,
		Gate:               gate,
		Decision:           kind,
		Remarks:            req.Remarks,
		RevisionWindow:     req.RevisionWindow,
		FundingDocumentRef: req.FundingDocumentRef,
		Expected:           expected,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToWorkflowResponse(result.Proposal, result.Events, actor))
}

func (h *ProposalHandler) AssignEvaluators(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "некорректный ID заявки")
	if !ok {
		return
	}

	var req dto.AssignEvaluatorsRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := validation.ValidateEvaluatorCount(len(req.EvaluatorIDs)); err != nil {
		response.Error(c, validationError(err))
		return
	}
	if err := validation.ValidateDepartment(req.Department); err != nil {
		response.Error(c, validationError(err))
		return
	}
	expected, err := req.Token()
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.uc.Assign.Execute(c.Request.Context(), actor, proposal.AssignEvaluatorsInput{
		ProposalID:   id,
		Department:   req.Department,
		EvaluatorIDs: req.EvaluatorIDs,
		DueInDays:    req.DueInDays,
		Expected:     expected,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToWorkflowResponse(result.Proposal, result.Events, actor))
}

func (h *ProposalHandler) RespondAssignment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "некорректный ID заявки")
	if !ok {
		return
	}
	assignmentID, ok := pathUUID(c, "assignmentId", "некорректный ID назначения")
	if !ok {
		return
	}

	var req dto.AssignmentResponseRequest
	if !bindJSON(c, &req) {
		return
	}
	answer, err := valueobject.NewAssignmentResponse(req.Response)
	if err != nil {
		response.Error(c, err)
		return
	}
	expected, err := req.Token()
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.uc.Respond.Execute(c.Request.Context(), actor, proposal.RespondAssignmentInput{
		ProposalID:   id,
		AssignmentID: assignmentID,
		Response:     answer,
		Remarks:      req.Remarks,
		Expected:     expected,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToWorkflowResponse(result.Proposal, result.Events, actor))
}

func (h *ProposalHandler) ReassignEvaluator(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "некорректный ID заявки")
	if !ok {
		return
	}
	assignmentID, ok := pathUUID(c, "assignmentId", "некорректный ID назначения")
	if !ok {
		return
	}

	var req dto.ReassignRequest
	if !bindJSON(c, &req) {
		return
	}
	expected, err := req.Token()
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.uc.Reassign.Execute(c.Request.Context(), actor, proposal.ReassignEvaluatorInput{
		ProposalID:     id,
		AssignmentID:   assignmentID,
		NewEvaluatorID: req.EvaluatorID,
		DueInDays:      req.DueInDays,
		Expected:       expected,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToWorkflowResponse(result.Proposal, result.Events, actor))
}

func (h *ProposalHandler) RecordRating(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "некорректный ID заявки")
	if !ok {
		return
	}

	var req dto.RatingRequest
	if !bindJSON(c, &req) {
		return
	}
	suggested, err := valueobject.NewSuggestedDecision(req.SuggestedDecision)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.uc.Rate.Execute(c.Request.Context(), actor, proposal.RecordRatingInput{
		ProposalID:        id,
		Scores:            req.Scores(),
		Comment:           req.Comment,
		SuggestedDecision: suggested,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToWorkflowResponse(result.Proposal, result.Events, actor))
}

func (h *ProposalHandler) ResubmitProposal(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "некорректный ID заявки")
	if !ok {
		return
	}

	var req dto.ResubmitRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := validateResubmit(req); err != nil {
		response.Error(c, validationError(err))
		return
	}
	expected, err := req.Token()
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.uc.Resubmit.Execute(c.Request.Context(), actor, proposal.ResubmitProposalInput{
		ProposalID:       id,
		DocumentRef:      req.DocumentRef,
		BudgetLines:      dto.ToBudgetLineInputs(req.BudgetLines),
		RevisionResponse: req.RevisionResponse,
		Expected:         expected,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToWorkflowResponse(result.Proposal, result.Events, actor))
}

func validateResubmit(req dto.ResubmitRequest) error {
	if err := validation.ValidateNonEmpty("ссылка на документ", req.DocumentRef); err != nil {
		return err
	}
	if err := validation.ValidateDocumentRef(req.DocumentRef); err != nil {
		return err
	}
	if err := validation.ValidateRevisionResponse(req.RevisionResponse); err != nil {
		return err
	}
	return validation.ValidateBudgetLineCount(len(req.BudgetLines))
}
