package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

// InsertNotification stores a notification in the recipient's inbox
func (d *DB) InsertNotification(ctx context.Context, n *model.Notification) error {
	data := n.Data
	if data == nil {
		data = map[string]string{}
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode notification data: %w", err)
	}

	_, err = d.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, is_read, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)
	`, n.ID, n.UserID, n.Title, n.Message, string(n.Type), n.IsRead, string(encoded), n.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListNotifications retrieves a user's notifications, newest first
func (d *DB) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	rows, err := d.pool.Query(ctx, `
		SELECT id, user_id, title, message, type, is_read, data, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`, userID, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		var notificationType string
		var data []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &notificationType, &n.IsRead, &data, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = model.NotificationType(notificationType)
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("failed to decode notification data: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

// MarkNotificationRead marks one of the user's notifications as read
func (d *DB) MarkNotificationRead(ctx context.Context, userID, id string) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: notification %s", model.ErrNotFound, id)
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification of the user as read
func (d *DB) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	tag, err := d.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CountUnread counts the user's unread notifications
func (d *DB) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := d.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
