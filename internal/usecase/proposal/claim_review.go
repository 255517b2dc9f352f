package proposal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

type ClaimReviewUseCase struct {
	workflow *Workflow
}

func NewClaimReviewUseCase(workflow *Workflow) *ClaimReviewUseCase {
	return &ClaimReviewUseCase{workflow: workflow}
}

// Execute берёт поданную заявку в работу сотрудником R&D.
func (uc *ClaimReviewUseCase) Execute(ctx context.Context, actor entity.Actor, proposalID uuid.UUID, expected *entity.StateToken) (*Result, error) {
	return uc.workflow.run(ctx, "claim", proposalID, expected, actor, func(p *entity.Proposal, now time.Time) error {
		if actor.Role != valueobject.RoleRnDStaff {
			return apperror.New(apperror.ErrCodeForbidden, "взять заявку в работу может только сотрудник R&D")
		}
		return p.Claim(actor, now)
	})
}
