package sqlite

import (
	"context"
	"time"

	"github.com/ukydev/fleet-backoffice/internal/models"
)

const notificationColumns = `id, user_id, type, message, details, link, read, created_at, updated_at`

// ListNotifications returns a user's notifications, newest first.
func (c *collections) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	rows, err := c.q.QueryContext(ctx, `SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var (
			n                    models.Notification
			typ                  string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Message, &n.Details, &n.Link, &n.Read,
			&createdAt, &updatedAt); err != nil {
			return nil, err
		}
		n.Type = models.NotificationType(typ)
		if n.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if n.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// InsertNotification inserts a notification. At most one exists per (user, link, type).
func (c *collections) InsertNotification(ctx context.Context, n models.Notification) error {
	now := time.Now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	_, err := c.q.ExecContext(ctx, `INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, string(n.Type), n.Message, n.Details, n.Link, n.Read,
		formatTime(n.CreatedAt), formatTime(n.UpdatedAt),
	)
	return mapError(err, "notification")
}

// UpdateNotification rewrites the message, details and read flag of n.
func (c *collections) UpdateNotification(ctx context.Context, n models.Notification) error {
	res, err := c.q.ExecContext(ctx, `UPDATE notifications SET message = ?, details = ?, read = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		n.Message, n.Details, n.Read, formatTime(time.Now()), n.ID, n.UserID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, "notification", n.ID)
}

// DeleteNotification deletes one of the user's notifications.
func (c *collections) DeleteNotification(ctx context.Context, userID, id string) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return expectOne(res, "notification", id)
}

// MarkNotificationRead flags one of the user's notifications as read.
func (c *collections) MarkNotificationRead(ctx context.Context, userID, id string) error {
	res, err := c.q.ExecContext(ctx, `UPDATE notifications SET read = 1, updated_at = ?
		WHERE id = ? AND user_id = ?`, formatTime(time.Now()), id, userID)
	if err != nil {
		return err
	}
	return expectOne(res, "notification", id)
}

// CountUnread counts the user's unread notifications.
func (c *collections) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := c.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`,
		userID).Scan(&n)
	return n, err
}
