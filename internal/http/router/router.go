package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/research-review/internal/config"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/http/middleware"
	"github.com/ignatzorin/research-review/internal/interface/http/handler"
)

// Handlers: всё, что нужно роутеру.
type Handlers struct {
	Proposals     *handler.ProposalHandler
	Evaluators    *handler.EvaluatorHandler
	Maintenance   *handler.MaintenanceHandler
	Documents     *handler.DocumentHandler
	Notifications *handler.NotificationHandler
	WS            *handler.WSHandler
	Health        *handler.HealthHandler
	Metrics       http.Handler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.AccessParser) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokens))
	protected.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		protected.POST("/proposals", h.Proposals.CreateProposal)
		protected.GET("/proposals", h.Proposals.ListProposals)

		proposal := protected.Group("/proposals/:id", middleware.UUIDValidator("id"))
		proposal.GET("", h.Proposals.GetProposal)
		proposal.GET("/budget", h.Proposals.GetBudgetLedger)
		proposal.GET("/decisions", h.Proposals.ListDecisions)
		proposal.POST("/submit", h.Proposals.SubmitDraft)
		proposal.POST("/claim", h.Proposals.ClaimReview)
		proposal.POST("/decisions", h.Proposals.RecordDecision)
		proposal.POST("/assignments", h.Proposals.AssignEvaluators)
		proposal.POST("/assignments/:assignmentId/response", middleware.UUIDValidator("assignmentId"), h.Proposals.RespondAssignment)
		proposal.POST("/assignments/:assignmentId/reassign", middleware.UUIDValidator("assignmentId"), h.Proposals.ReassignEvaluator)
		proposal.POST("/ratings", h.Proposals.RecordRating)
		proposal.POST("/resubmit", h.Proposals.ResubmitProposal)

		protected.GET("/evaluators", h.Evaluators.ListEvaluators)
		protected.POST("/evaluators", h.Evaluators.RegisterEvaluator)
		protected.PUT("/evaluators/:id", middleware.UUIDValidator("id"), h.Evaluators.UpdateEvaluator)

		protected.POST("/documents", h.Documents.UploadDocument)

		protected.GET("/notifications", h.Notifications.ListNotifications)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), h.Notifications.MarkAsRead)

		maintenance := protected.Group("/maintenance", middleware.RequireRoles(valueobject.RoleAdmin))
		maintenance.POST("/revisions/expire", h.Maintenance.ExpireRevisions)
		maintenance.POST("/assignments/overdue", h.Maintenance.MarkOverdueAssignments)
	}

	return r
}
