package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/repository"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
	"github.com/ignatzorin/research-review/internal/repository/common"
)

var errNotificationNotFound = apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено")

type NotificationRepositoryAdapter struct {
	db *sqlx.DB
}

func NewNotificationRepositoryAdapter(db *sqlx.DB) *NotificationRepositoryAdapter {
	return &NotificationRepositoryAdapter{db: db}
}

var _ repository.NotificationRepository = (*NotificationRepositoryAdapter)(nil)

func (r *NotificationRepositoryAdapter) Create(ctx context.Context, n *entity.Notification) (bool, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, event_id, payload, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id, user_id) DO NOTHING
	`, n.ID, n.UserID, n.EventID, []byte(n.Payload), n.IsRead, n.CreatedAt)
	if err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать уведомление")
	}
	inserted, _ := res.RowsAffected()
	return inserted > 0, nil
}

func (r *NotificationRepositoryAdapter) GetByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error) {
	row, err := common.GetOne[notificationRow](ctx, r.db, errNotificationNotFound, `
		SELECT id, user_id, event_id, payload, is_read, created_at FROM notifications WHERE id = $1
	`, id)
	if errors.Is(err, errNotificationNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить уведомление")
	}
	n := row.toEntity()
	return &n, nil
}

func (r *NotificationRepositoryAdapter) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]entity.Notification, error) {
	query := `SELECT id, user_id, event_id, payload, is_read, created_at FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить уведомления")
	}
	items := make([]entity.Notification, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].toEntity())
	}
	return items, nil
}

func (r *NotificationRepositoryAdapter) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить уведомление")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errNotificationNotFound
	}
	return nil
}

func (r *NotificationRepositoryAdapter) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE
	`, userID); err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать уведомления")
	}
	return count, nil
}
