package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/repository"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
	"github.com/ignatzorin/research-review/internal/repository/common"
)

// evaluatorSelect считает нагрузку по активным назначениям на лету.
const evaluatorSelect = `
	SELECT e.id, e.name, e.department, e.specialties, e.max_workload, e.created_at, e.updated_at,
	(SELECT COUNT(*) FROM evaluator_assignments a
		WHERE a.evaluator_id = e.id AND a.status IN ('pending', 'accepted', 'overdue')) AS current_workload
	FROM evaluators e
`

type EvaluatorRepositoryAdapter struct {
	db *sqlx.DB
}

func NewEvaluatorRepositoryAdapter(db *sqlx.DB) *EvaluatorRepositoryAdapter {
	return &EvaluatorRepositoryAdapter{db: db}
}

var _ repository.EvaluatorRepository = (*EvaluatorRepositoryAdapter)(nil)

func (r *EvaluatorRepositoryAdapter) Create(ctx context.Context, ev *entity.Evaluator) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO evaluators (id, name, department, specialties, max_workload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.ID, ev.Name, ev.Department, pq.StringArray(ev.Specialties), ev.MaxWorkload, ev.CreatedAt, ev.UpdatedAt)
	if isUniqueViolation(err, "evaluators_pkey") {
		return apperror.New(apperror.ErrCodeConflict, "эксперт уже зарегистрирован")
	}
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось зарегистрировать эксперта")
	}
	return nil
}

func (r *EvaluatorRepositoryAdapter) Update(ctx context.Context, ev *entity.Evaluator) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE evaluators SET name = $2, department = $3, specialties = $4, max_workload = $5, updated_at = $6
		WHERE id = $1
	`, ev.ID, ev.Name, ev.Department, pq.StringArray(ev.Specialties), ev.MaxWorkload, ev.UpdatedAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить эксперта")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.ErrEvaluatorNotFound
	}
	return nil
}

func (r *EvaluatorRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Evaluator, error) {
	row, err := common.GetOne[evaluatorRow](ctx, r.db, apperror.ErrEvaluatorNotFound, evaluatorSelect+` WHERE e.id = $1`, id)
	if errors.Is(err, apperror.ErrEvaluatorNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить эксперта")
	}
	return row.toEntity(), nil
}

func (r *EvaluatorRepositoryAdapter) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Evaluator, error) {
	result := make(map[uuid.UUID]*entity.Evaluator, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []evaluatorRow
	if err := r.db.SelectContext(ctx, &rows, evaluatorSelect+` WHERE e.id = ANY($1::uuid[])`, uuidStrings(ids)); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить экспертов")
	}
	for i := range rows {
		result[rows[i].ID] = rows[i].toEntity()
	}
	return result, nil
}

func (r *EvaluatorRepositoryAdapter) List(ctx context.Context, filter repository.EvaluatorFilter) ([]*entity.Evaluator, error) {
	var (
		conditions []string
		args       []any
	)
	if department := strings.TrimSpace(filter.Department); department != "" {
		args = append(args, department)
		conditions = append(conditions, fmt.Sprintf("lower(v.department) = lower($%d)", len(args)))
	}
	if specialty := strings.ToLower(strings.TrimSpace(filter.Specialty)); specialty != "" {
		args = append(args, specialty)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(v.specialties)", len(args)))
	}
	if filter.AvailableOnly {
		conditions = append(conditions, "v.current_workload < v.max_workload")
	}

	query := `SELECT * FROM (` + evaluatorSelect + `) v`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY v.name"

	var rows []evaluatorRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить список экспертов")
	}
	result := make([]*entity.Evaluator, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toEntity())
	}
	return result, nil
}
