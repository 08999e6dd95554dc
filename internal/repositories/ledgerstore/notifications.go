package ledgerstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"billbuddy/internal/models"
	"billbuddy/internal/repositories/sqlconnect"
	"billbuddy/pkg/utils"
)

func (s *Store) InsertNotification(ctx context.Context, q sqlconnect.DBTX, n *models.Notification) error {
	res, err := q.ExecContext(ctx,
		"INSERT INTO notifications (user_id, message, is_read, created_at) VALUES (?, ?, ?, ?)",
		n.UserID, n.Message, n.IsRead, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert notification id: %w", err)
	}
	n.ID = id
	return nil
}

func (s *Store) GetNotification(ctx context.Context, q sqlconnect.DBTX, id int64) (models.Notification, error) {
	var n models.Notification
	err := q.QueryRowContext(ctx,
		"SELECT id, user_id, message, is_read, created_at FROM notifications WHERE id = ?", id).
		Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, utils.NotFound("notification not found")
	}
	if err != nil {
		return models.Notification{}, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns a page of the user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, q sqlconnect.DBTX, userID int64, limit, offset int) ([]models.Notification, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, message, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *Store) CountUnread(ctx context.Context, q sqlconnect.DBTX, userID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = ?", userID, false).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// MarkNotificationRead only ever sets is_read to true.
func (s *Store) MarkNotificationRead(ctx context.Context, q sqlconnect.DBTX, id int64) error {
	if _, err := q.ExecContext(ctx, "UPDATE notifications SET is_read = ? WHERE id = ?", true, id); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
