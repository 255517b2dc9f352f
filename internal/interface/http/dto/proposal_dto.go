package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	domainsvc "github.com/ignatzorin/research-review/internal/domain/service"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

// ExpectedState: необязательная проверка оптимистической блокировки.
// Поля передаются вместе или не передаются вовсе.
type ExpectedState struct {
	ExpectedStatus  *string `json:"expected_status"`
	ExpectedVersion *int    `json:"expected_version"`
}

func (s ExpectedState) Token() (*entity.StateToken, error) {
	if s.ExpectedStatus == nil && s.ExpectedVersion == nil {
		return nil, nil
	}
	if s.ExpectedStatus == nil || s.ExpectedVersion == nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "expected_status и expected_version передаются вместе")
	}
	status, err := valueobject.NewProposalStatus(*s.ExpectedStatus)
	if err != nil {
		return nil, err
	}
	return &entity.StateToken{Status: status, DocumentVersion: *s.ExpectedVersion}, nil
}

type BudgetLineRequest struct {
	Source string  `json:"source"`
	PS     float64 `json:"ps"`
	MOOE   float64 `json:"mooe"`
	CO     float64 `json:"co"`
}

func ToBudgetLineInputs(lines []BudgetLineRequest) []domainsvc.BudgetLineInput {
	inputs := make([]domainsvc.BudgetLineInput, 0, len(lines))
	for _, l := range lines {
		inputs = append(inputs, domainsvc.BudgetLineInput{Source: l.Source, PS: l.PS, MOOE: l.MOOE, CO: l.CO})
	}
	return inputs
}

type CreateProposalRequest struct {
	Title        string              `json:"title" binding:"required"`
	ProgramTitle string              `json:"program_title"`
	Department   string              `json:"department"`
	DocumentRef  string              `json:"document_ref"`
	BudgetLines  []BudgetLineRequest `json:"budget_lines"`
	Draft        bool                `json:"draft"`
}

type TransitionRequest struct {
	ExpectedState
}

type DecisionRequest struct {
	Gate               string `json:"gate" binding:"required"`
	Decision           string `json:"decision" binding:"required"`
	Remarks            string `json:"remarks"`
	RevisionWindow     string `json:"revision_window"`
	FundingDocumentRef string `json:"funding_document_ref"`
	ExpectedState
}

type AssignEvaluatorsRequest struct {
	Department   string      `json:"department"`
	EvaluatorIDs []uuid.UUID `json:"evaluator_ids" binding:"required,min=1"`
	DueInDays    int         `json:"due_in_days"`
	ExpectedState
}

type AssignmentResponseRequest struct {
	Response string  `json:"response" binding:"required"`
	Remarks  *string `json:"remarks"`
	ExpectedState
}

type ReassignRequest struct {
	EvaluatorID uuid.UUID `json:"evaluator_id" binding:"required"`
	DueInDays   int       `json:"due_in_days"`
	ExpectedState
}

type RatingRequest struct {
	Objectives        int    `json:"objectives"`
	Methodology       int    `json:"methodology"`
	Budget            int    `json:"budget"`
	Timeline          int    `json:"timeline"`
	Comment           string `json:"comment"`
	SuggestedDecision string `json:"suggested_decision" binding:"required"`
}

func (r RatingRequest) Scores() entity.RatingScores {
	return entity.RatingScores{
		Objectives:  r.Objectives,
		Methodology: r.Methodology,
		Budget:      r.Budget,
		Timeline:    r.Timeline,
	}
}

type ResubmitRequest struct {
	DocumentRef      string              `json:"document_ref"`
	BudgetLines      []BudgetLineRequest `json:"budget_lines"`
	RevisionResponse *string             `json:"revision_response"`
	ExpectedState
}

type BudgetTotalsResponse struct {
	PS    float64 `json:"ps"`
	MOOE  float64 `json:"mooe"`
	CO    float64 `json:"co"`
	Total float64 `json:"total"`
}

func toTotals(t entity.BudgetTotals) BudgetTotalsResponse {
	return BudgetTotalsResponse{PS: t.PS, MOOE: t.MOOE, CO: t.CO, Total: t.Total}
}

type VersionResponse struct {
	Version          int                  `json:"version"`
	DocumentRef      string               `json:"document_ref"`
	RevisionResponse *string              `json:"revision_response,omitempty"`
	SubmittedAt      time.Time            `json:"submitted_at"`
	BudgetTotals     BudgetTotalsResponse `json:"budget_totals"`
}

type AssignmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	EvaluatorID     uuid.UUID  `json:"evaluator_id"`
	DocumentVersion int        `json:"document_version"`
	Department      string     `json:"department"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	RespondBy       time.Time  `json:"respond_by"`
	DueAt           time.Time  `json:"due_at"`
	RespondedAt     *time.Time `json:"responded_at,omitempty"`
	Remarks         *string    `json:"remarks,omitempty"`
}

type RatingResponse struct {
	ID                uuid.UUID `json:"id"`
	EvaluatorID       uuid.UUID `json:"evaluator_id"`
	DocumentVersion   int       `json:"document_version"`
	Objectives        int       `json:"objectives"`
	Methodology       int       `json:"methodology"`
	Budget            int       `json:"budget"`
	Timeline          int       `json:"timeline"`
	MeanScore         float64   `json:"mean_score"`
	Comment           string    `json:"comment,omitempty"`
	SuggestedDecision string    `json:"suggested_decision"`
	SubmittedAt       time.Time `json:"submitted_at"`
}

type ProposalResponse struct {
	ID                 uuid.UUID            `json:"id"`
	Title              string               `json:"title"`
	ProgramTitle       string               `json:"program_title"`
	Department         string               `json:"department"`
	ProponentID        uuid.UUID            `json:"proponent_id"`
	Status             string               `json:"status"`
	DocumentVersion    int                  `json:"document_version"`
	RevisionDeadline   *time.Time           `json:"revision_deadline,omitempty"`
	FundingDocumentRef *string              `json:"funding_document_ref,omitempty"`
	ClaimedBy          *uuid.UUID           `json:"claimed_by,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	LastTransitionAt   time.Time            `json:"last_transition_at"`
	Versions           []VersionResponse    `json:"versions"`
	Assignments        []AssignmentResponse `json:"assignments,omitempty"`
	Ratings            []RatingResponse     `json:"ratings,omitempty"`
}

// ToProposalResponse скрывает оценки от автора заявки, эксперт видит только свои.
func ToProposalResponse(p *entity.Proposal, viewer entity.Actor) ProposalResponse {
	resp := ProposalResponse{
		ID:                 p.ID,
		Title:              p.Title,
		ProgramTitle:       p.ProgramTitle,
		Department:         p.Department,
		ProponentID:        p.ProponentID,
		Status:             string(p.Status),
		DocumentVersion:    p.DocumentVersion,
		RevisionDeadline:   p.RevisionDeadline,
		FundingDocumentRef: p.FundingDocumentRef,
		ClaimedBy:          p.ClaimedBy,
		CreatedAt:          p.CreatedAt,
		LastTransitionAt:   p.LastTransitionAt,
		Versions:           make([]VersionResponse, 0, len(p.Versions)),
	}
	for _, v := range p.Versions {
		resp.Versions = append(resp.Versions, VersionResponse{
			Version:          v.Version,
			DocumentRef:      v.DocumentRef,
			RevisionResponse: v.RevisionResponse,
			SubmittedAt:      v.SubmittedAt,
			BudgetTotals:     toTotals(v.Totals()),
		})
	}

	if viewer.Is(valueobject.RoleProponent) {
		return resp
	}
	for _, a := range p.Assignments {
		if viewer.Is(valueobject.RoleEvaluator) && a.EvaluatorID != viewer.ID {
			continue
		}
		resp.Assignments = append(resp.Assignments, AssignmentResponse{
			ID:              a.ID,
			EvaluatorID:     a.EvaluatorID,
			DocumentVersion: a.DocumentVersion,
			Department:      a.Department,
			Status:          string(a.Status),
			CreatedAt:       a.CreatedAt,
			RespondBy:       a.RespondBy,
			DueAt:           a.DueAt,
			RespondedAt:     a.RespondedAt,
			Remarks:         a.Remarks,
		})
	}
	for _, r := range p.Ratings {
		if viewer.Is(valueobject.RoleEvaluator) && r.EvaluatorID != viewer.ID {
			continue
		}
		resp.Ratings = append(resp.Ratings, RatingResponse{
			ID:                r.ID,
			EvaluatorID:       r.EvaluatorID,
			DocumentVersion:   r.DocumentVersion,
			Objectives:        r.Scores.Objectives,
			Methodology:       r.Scores.Methodology,
			Budget:            r.Scores.Budget,
			Timeline:          r.Scores.Timeline,
			MeanScore:         r.Scores.Mean(),
			Comment:           r.Comment,
			SuggestedDecision: string(r.SuggestedDecision),
			SubmittedAt:       r.SubmittedAt,
		})
	}
	return resp
}

func ToProposalResponses(proposals []*entity.Proposal, viewer entity.Actor) []ProposalResponse {
	responses := make([]ProposalResponse, 0, len(proposals))
	for _, p := range proposals {
		responses = append(responses, ToProposalResponse(p, viewer))
	}
	return responses
}

// WorkflowResponse: ответ на изменяющую операцию.
type WorkflowResponse struct {
	Proposal ProposalResponse `json:"proposal"`
	Events   []entity.Event   `json:"events"`
}

func ToWorkflowResponse(p *entity.Proposal, events []entity.Event, viewer entity.Actor) WorkflowResponse {
	if events == nil {
		events = []entity.Event{}
	}
	return WorkflowResponse{Proposal: ToProposalResponse(p, viewer), Events: events}
}

type LedgerLineResponse struct {
	Source string  `json:"source"`
	PS     float64 `json:"ps"`
	MOOE   float64 `json:"mooe"`
	CO     float64 `json:"co"`
	Total  float64 `json:"total"`
}

type LedgerResponse struct {
	Version int                  `json:"version"`
	Lines   []LedgerLineResponse `json:"lines"`
	Totals  BudgetTotalsResponse `json:"totals"`
}

func ToLedgerResponse(l *domainsvc.Ledger) LedgerResponse {
	resp := LedgerResponse{Version: l.Version, Lines: make([]LedgerLineResponse, 0, len(l.Lines)), Totals: toTotals(l.Totals)}
	for _, line := range l.Lines {
		resp.Lines = append(resp.Lines, LedgerLineResponse{
			Source: line.Source,
			PS:     line.PS,
			MOOE:   line.MOOE,
			CO:     line.CO,
			Total:  line.Total,
		})
	}
	return resp
}

type DecisionResponse struct {
	ID                 uuid.UUID  `json:"id"`
	DocumentVersion    int        `json:"document_version"`
	Gate               string     `json:"gate"`
	Decision           string     `json:"decision"`
	Remarks            string     `json:"remarks"`
	RevisionDeadline   *time.Time `json:"revision_deadline,omitempty"`
	FundingDocumentRef *string    `json:"funding_document_ref,omitempty"`
	DecidedBy          uuid.UUID  `json:"decided_by"`
	DecidedRole        string     `json:"decided_role"`
	DecidedAt          time.Time  `json:"decided_at"`
}

func ToDecisionResponses(decisions []entity.Decision) []DecisionResponse {
	responses := make([]DecisionResponse, 0, len(decisions))
	for _, d := range decisions {
		responses = append(responses, DecisionResponse{
			ID:                 d.ID,
			DocumentVersion:    d.DocumentVersion,
			Gate:               string(d.Gate),
			Decision:           string(d.Decision),
			Remarks:            d.Remarks,
			RevisionDeadline:   d.RevisionDeadline,
			FundingDocumentRef: d.FundingDocumentRef,
			DecidedBy:          d.DecidedBy,
			DecidedRole:        string(d.DecidedRole),
			DecidedAt:          d.DecidedAt,
		})
	}
	return responses
}
