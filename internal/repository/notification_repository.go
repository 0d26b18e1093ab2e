package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/english-korat/ekls-api/internal/models"
)

// NotificationRepository persists bilingual in-app notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts one notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	const query = `INSERT INTO notifications
	(user_id, title, title_th, message, message_th, type, read, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW())
	RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query,
		n.UserID, n.Title, n.TitleTh, n.Message, n.MessageTh, n.Type,
	).Scan(&n.ID, &n.CreatedAt); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByUser returns a user's notifications, unread first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT id, user_id, title, title_th, message, message_th, type, read, read_at, created_at
	FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += " AND read = FALSE"
	}
	query += " ORDER BY read ASC, created_at DESC LIMIT 100"

	items := []models.Notification{}
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// MarkRead flags one notification as read for its owner.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int64) error {
	const query = `UPDATE notifications SET read = TRUE, read_at = NOW()
	WHERE id = $1 AND user_id = $2 AND read = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireRowAffected(res, "notification")
}
