package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/interface/http/dto"
	"github.com/ignatzorin/research-review/internal/interface/http/response"
	"github.com/ignatzorin/research-review/internal/usecase/proposal"
)

type sweepFunc func(ctx context.Context, actor entity.Actor) (*proposal.SweepResult, error)

// MaintenanceHandler запускает плановые проверки вручную (администратор).
type MaintenanceHandler struct {
	expireRevisions sweepFunc
	markOverdue     sweepFunc
}

func NewMaintenanceHandler(uc *proposal.UseCases) *MaintenanceHandler {
	return &MaintenanceHandler{
		expireRevisions: uc.ExpireRevisions.Execute,
		markOverdue:     uc.MarkOverdue.Execute,
	}
}

func (h *MaintenanceHandler) ExpireRevisions(c *gin.Context) {
	h.run(c, h.expireRevisions)
}

func (h *MaintenanceHandler) MarkOverdueAssignments(c *gin.Context) {
	h.run(c, h.markOverdue)
}

func (h *MaintenanceHandler) run(c *gin.Context, sweep sweepFunc) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	result, err := sweep(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	ids := result.ProposalIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	response.Success(c, dto.SweepResponse{ProposalIDs: ids, Events: len(result.Events), Failed: result.Failed})
}
