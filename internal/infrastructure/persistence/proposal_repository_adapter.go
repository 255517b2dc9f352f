package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/repository"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
	"github.com/ignatzorin/research-review/internal/repository/common"
)

const proposalColumns = `id, title, program_title, department, proponent_id, status, document_version,
	revision_deadline, funding_document_ref, claimed_by, created_at, last_transition_at`

const assignmentColumns = `id, proposal_id, evaluator_id, document_version, department, status,
	created_at, respond_by, due_at, responded_at, accepted_at, remarks`

type ProposalRepositoryAdapter struct {
	db *sqlx.DB
}

func NewProposalRepositoryAdapter(db *sqlx.DB) *ProposalRepositoryAdapter {
	return &ProposalRepositoryAdapter{db: db}
}

var _ repository.ProposalRepository = (*ProposalRepositoryAdapter)(nil)

func (r *ProposalRepositoryAdapter) Create(ctx context.Context, p *entity.Proposal) error {
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO proposals (` + proposalColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		if _, err := tx.ExecContext(ctx, query,
			p.ID, p.Title, p.ProgramTitle, p.Department, p.ProponentID, string(p.Status), p.DocumentVersion,
			p.RevisionDeadline, p.FundingDocumentRef, nullUUID(p.ClaimedBy), p.CreatedAt, p.LastTransitionAt,
		); err != nil {
			if isUniqueViolation(err, "proposals_pkey") {
				return apperror.New(apperror.ErrCodeConflict, "заявка уже существует")
			}
			return err
		}
		for _, v := range p.Versions {
			if err := insertVersion(ctx, tx, p.ID, v); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapDB(err, "не удалось создать заявку")
}

// insertVersion сохраняет версию и её строки бюджета одной пачкой.
func insertVersion(ctx context.Context, tx *sqlx.Tx, proposalID uuid.UUID, v entity.DocumentVersion) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO proposal_versions (proposal_id, version, document_ref, revision_response, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
	`, proposalID, v.Version, v.DocumentRef, v.RevisionResponse, v.SubmittedAt); err != nil {
		return err
	}

	inserter := common.NewBatchInserter(tx,
		`INSERT INTO budget_lines (proposal_id, version, position, source, ps, mooe, co)`, 7, 100)
	for i, line := range v.BudgetLines {
		if err := inserter.Add(ctx, proposalID, v.Version, i, line.Source, line.PS, line.MOOE, line.CO); err != nil {
			return err
		}
	}
	return inserter.Flush(ctx)
}

func (r *ProposalRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = $1`
	var p *entity.Proposal
	err := common.WithReadSnapshot(ctx, r.db, func(tx *sqlx.Tx) error {
		row, err := common.GetOne[proposalRow](ctx, tx, apperror.ErrProposalNotFound, query, id)
		if err != nil {
			return err
		}
		p = row.toEntity()
		return loadChildren(ctx, tx, []*entity.Proposal{p})
	})
	if errors.Is(err, apperror.ErrProposalNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить заявку")
	}
	return p, nil
}

func (r *ProposalRepositoryAdapter) List(ctx context.Context, filter repository.ProposalFilter) ([]*entity.Proposal, int, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.ProponentID != nil {
		args = append(args, *filter.ProponentID)
		conditions = append(conditions, fmt.Sprintf("p.proponent_id = $%d", len(args)))
	}
	if filter.EvaluatorID != nil {
		args = append(args, *filter.EvaluatorID)
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM evaluator_assignments a WHERE a.proposal_id = p.id AND a.evaluator_id = $%d)", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := `SELECT ` + prefixColumns("p", proposalColumns) + ` FROM proposals p` + where + ` ORDER BY p.created_at DESC`
	countArgs := args
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var (
		total     int
		proposals []*entity.Proposal
	)
	err := common.WithReadSnapshot(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &total, `SELECT COUNT(*) FROM proposals p`+where, countArgs...); err != nil {
			return fmt.Errorf("count: %w", err)
		}
		var rows []proposalRow
		if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
			return fmt.Errorf("proposals: %w", err)
		}
		proposals = make([]*entity.Proposal, 0, len(rows))
		for i := range rows {
			proposals = append(proposals, rows[i].toEntity())
		}
		return loadChildren(ctx, tx, proposals)
	})
	if err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить заявки")
	}
	return proposals, total, nil
}

// loadChildren догружает версии, назначения, оценки и решения без N+1.
func loadChildren(ctx context.Context, q sqlx.QueryerContext, proposals []*entity.Proposal) error {
	if len(proposals) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*entity.Proposal, len(proposals))
	ids := make([]uuid.UUID, 0, len(proposals))
	for _, p := range proposals {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	idArray := uuidStrings(ids)

	var versions []versionRow
	if err := sqlx.SelectContext(ctx, q, &versions, `
		SELECT proposal_id, version, document_ref, revision_response, submitted_at
		FROM proposal_versions WHERE proposal_id = ANY($1::uuid[]) ORDER BY version
	`, idArray); err != nil {
		return fmt.Errorf("versions: %w", err)
	}
	var lines []budgetLineRow
	if err := sqlx.SelectContext(ctx, q, &lines, `
		SELECT proposal_id, version, position, source, ps, mooe, co
		FROM budget_lines WHERE proposal_id = ANY($1::uuid[]) ORDER BY version, position
	`, idArray); err != nil {
		return fmt.Errorf("budget lines: %w", err)
	}
	type versionKey struct {
		proposalID uuid.UUID
		version    int
	}
	linesByVersion := make(map[versionKey][]entity.BudgetLine)
	for _, l := range lines {
		key := versionKey{l.ProposalID, l.Version}
		linesByVersion[key] = append(linesByVersion[key], entity.BudgetLine{Source: l.Source, PS: l.PS, MOOE: l.MOOE, CO: l.CO})
	}
	for _, v := range versions {
		p := byID[v.ProposalID]
		p.Versions = append(p.Versions, entity.DocumentVersion{
			Version:          v.Version,
			DocumentRef:      v.DocumentRef,
			RevisionResponse: v.RevisionResponse,
			BudgetLines:      linesByVersion[versionKey{v.ProposalID, v.Version}],
			SubmittedAt:      v.SubmittedAt.UTC(),
		})
	}

	var assignments []assignmentRow
	if err := sqlx.SelectContext(ctx, q, &assignments, `
		SELECT `+assignmentColumns+`
		FROM evaluator_assignments WHERE proposal_id = ANY($1::uuid[]) ORDER BY created_at
	`, idArray); err != nil {
		return fmt.Errorf("assignments: %w", err)
	}
	for i := range assignments {
		p := byID[assignments[i].ProposalID]
		p.Assignments = append(p.Assignments, assignments[i].toEntity())
	}

	var ratings []ratingRow
	if err := sqlx.SelectContext(ctx, q, &ratings, `
		SELECT id, proposal_id, document_version, evaluator_id, objectives, methodology, budget, timeline,
		comment, suggested_decision, submitted_at
		FROM evaluator_ratings WHERE proposal_id = ANY($1::uuid[]) ORDER BY submitted_at
	`, idArray); err != nil {
		return fmt.Errorf("ratings: %w", err)
	}
	for i := range ratings {
		p := byID[ratings[i].ProposalID]
		p.Ratings = append(p.Ratings, ratings[i].toEntity())
	}

	var decisions []decisionRow
	if err := sqlx.SelectContext(ctx, q, &decisions, `
		SELECT id, proposal_id, document_version, gate, decision, remarks, revision_deadline,
		funding_document_ref, decided_by, decided_role, decided_at
		FROM decisions WHERE proposal_id = ANY($1::uuid[]) ORDER BY decided_at, id
	`, idArray); err != nil {
		return fmt.Errorf("decisions: %w", err)
	}
	for i := range decisions {
		p := byID[decisions[i].ProposalID]
		p.Decisions = append(p.Decisions, decisions[i].toEntity())
	}
	return nil
}

// Save применяет ChangeSet в одной транзакции. Строка заявки обновляется
// только при совпадении статуса и версии с expected.
func (r *ProposalRepositoryAdapter) Save(ctx context.Context, p *entity.Proposal, expected entity.StateToken) error {
	changes := p.Changes()
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE proposals SET status = $2, document_version = $3, revision_deadline = $4,
			funding_document_ref = $5, claimed_by = $6, last_transition_at = $7
			WHERE id = $1 AND status = $8 AND document_version = $9
		`, p.ID, string(p.Status), p.DocumentVersion, p.RevisionDeadline,
			p.FundingDocumentRef, nullUUID(p.ClaimedBy), p.LastTransitionAt,
			string(expected.Status), expected.DocumentVersion)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return r.missingOrStale(ctx, tx, p.ID)
		}

		if changes.NewVersion != nil {
			if err := insertVersion(ctx, tx, p.ID, *changes.NewVersion); err != nil {
				return err
			}
		}
		for _, id := range changes.Assignments {
			a := p.Assignment(id)
			if a == nil {
				continue
			}
			if err := upsertAssignment(ctx, tx, a); err != nil {
				return err
			}
		}
		if len(changes.Decisions) > 0 {
			inserter := common.NewBatchInserter(tx, `INSERT INTO decisions (id, proposal_id, document_version, gate,
				decision, remarks, revision_deadline, funding_document_ref, decided_by, decided_role, decided_at)`, 11, 50)
			for _, d := range changes.Decisions {
				if err := inserter.Add(ctx, d.ID, d.ProposalID, d.DocumentVersion, string(d.Gate), string(d.Decision),
					d.Remarks, d.RevisionDeadline, d.FundingDocumentRef, d.DecidedBy, string(d.DecidedRole), d.DecidedAt); err != nil {
					return err
				}
			}
			if err := inserter.Flush(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapDB(err, "не удалось сохранить заявку")
}

func (r *ProposalRepositoryAdapter) missingOrStale(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM proposals WHERE id = $1)`, id); err != nil {
		return err
	}
	if !exists {
		return apperror.ErrProposalNotFound
	}
	return apperror.ErrStaleState
}

// upsertAssignment не трогает завершённое назначение: завершение приходит только из AppendRating.
// Если строка уже завершена, ни вставки, ни обновления не будет, и снимок считается устаревшим.
func upsertAssignment(ctx context.Context, tx *sqlx.Tx, a *entity.EvaluatorAssignment) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO evaluator_assignments (`+assignmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, responded_at = EXCLUDED.responded_at,
		accepted_at = EXCLUDED.accepted_at, remarks = EXCLUDED.remarks
		WHERE evaluator_assignments.status <> 'completed'
	`, a.ID, a.ProposalID, a.EvaluatorID, a.DocumentVersion, a.Department, string(a.Status),
		a.CreatedAt, a.RespondBy, a.DueAt, a.RespondedAt, a.AcceptedAt, a.Remarks)
	if isUniqueViolation(err, "uq_active_assignment") {
		return apperror.New(apperror.ErrCodeDuplicateAssignment, "эксперт уже назначен на эту версию заявки")
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.ErrStaleState
	}
	return nil
}

// AppendRating берёт разделяемую блокировку строки заявки: параллельные оценки
// не мешают друг другу, но переход заявки дождётся их завершения.
func (r *ProposalRepositoryAdapter) AppendRating(ctx context.Context, rating *entity.EvaluatorRating, assignmentID uuid.UUID) error {
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var state struct {
			Status          string `db:"status"`
			DocumentVersion int    `db:"document_version"`
		}
		if err := tx.GetContext(ctx, &state, `
			SELECT status, document_version FROM proposals WHERE id = $1 FOR SHARE
		`, rating.ProposalID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrProposalNotFound
			}
			return err
		}
		if state.Status != string(valueobject.ProposalStatusUnderEvaluation) || state.DocumentVersion != rating.DocumentVersion {
			return apperror.ErrStaleState
		}

		var row assignmentRow
		if err := tx.GetContext(ctx, &row, `
			SELECT `+assignmentColumns+` FROM evaluator_assignments
			WHERE id = $1 AND proposal_id = $2 FOR UPDATE
		`, assignmentID, rating.ProposalID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrAssignmentNotFound
			}
			return err
		}
		a := row.toEntity()
		if a.EvaluatorID != rating.EvaluatorID {
			return apperror.ErrAssignmentNotFound
		}
		if err := a.Complete(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO evaluator_ratings (id, proposal_id, document_version, evaluator_id, objectives, methodology,
			budget, timeline, comment, suggested_decision, submitted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, rating.ID, rating.ProposalID, rating.DocumentVersion, rating.EvaluatorID,
			rating.Scores.Objectives, rating.Scores.Methodology, rating.Scores.Budget, rating.Scores.Timeline,
			rating.Comment, string(rating.SuggestedDecision), rating.SubmittedAt); err != nil {
			if isUniqueViolation(err, "") {
				return apperror.ErrAlreadyRated
			}
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE evaluator_assignments SET status = $2 WHERE id = $1`,
			a.ID, string(a.Status))
		return err
	})
	return wrapDB(err, "не удалось сохранить оценку")
}

func (r *ProposalRepositoryAdapter) FindExpiredRevisionIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `
		SELECT id FROM proposals
		WHERE status = ANY($1) AND revision_deadline IS NOT NULL AND revision_deadline < $2
		ORDER BY revision_deadline
	`, revisionStatuses(), now)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось найти просроченные доработки")
	}
	return ids, nil
}

func (r *ProposalRepositoryAdapter) FindOverdueAssignmentProposalIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `
		SELECT DISTINCT a.proposal_id FROM evaluator_assignments a
		JOIN proposals p ON p.id = a.proposal_id AND p.document_version = a.document_version
		WHERE p.status = $1
		AND ((a.status = 'pending' AND a.respond_by < $2) OR (a.status = 'accepted' AND a.due_at < $2))
	`, string(valueobject.ProposalStatusUnderEvaluation), now)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось найти просроченные назначения")
	}
	return ids, nil
}

func revisionStatuses() pq.StringArray {
	var statuses pq.StringArray
	for _, s := range valueobject.AllProposalStatuses {
		if s.IsRevision() {
			statuses = append(statuses, string(s))
		}
	}
	return statuses
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// wrapDB оставляет доменные ошибки как есть и заворачивает остальные в DATABASE_ERROR.
func wrapDB(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, message)
}
