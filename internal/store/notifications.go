package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *PostgresStore) InsertNotification(ctx context.Context, n Notification) (Notification, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (recipient_id, sender_id, type, message, related_kind, related_id)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, NULLIF($6, '')::uuid)
		RETURNING id, created_at
	`, n.RecipientID, n.SenderID, n.Type, n.Message, string(n.Related.Kind), n.Related.ID).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns the recipient's most recent notifications (capped
// at 50) together with the total unread count.
func (s *PostgresStore) ListNotifications(ctx context.Context, recipientID string) ([]Notification, int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.recipient_id, COALESCE(n.sender_id::text, ''), COALESCE(u.display_name, ''),
			n.type, n.message, n.related_kind, COALESCE(n.related_id::text, ''), n.is_read, n.created_at
		FROM notifications n
		LEFT JOIN users u ON u.id = n.sender_id
		WHERE n.recipient_id = $1
		ORDER BY n.created_at DESC
		LIMIT 50
	`, recipientID)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var items []Notification
	for rows.Next() {
		var n Notification
		var kind string
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.SenderID, &n.SenderName,
			&n.Type, &n.Message, &kind, &n.Related.ID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		n.Related.Kind = RelatedKind(kind)
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var unread int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE recipient_id=$1 AND is_read=FALSE
	`, recipientID).Scan(&unread)
	if err != nil {
		return nil, 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return items, unread, nil
}

func (s *PostgresStore) GetNotification(ctx context.Context, notificationID string) (Notification, error) {
	var n Notification
	var kind string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, recipient_id, COALESCE(sender_id::text, ''), type, message,
			related_kind, COALESCE(related_id::text, ''), is_read, created_at
		FROM notifications WHERE id=$1
	`, notificationID).Scan(&n.ID, &n.RecipientID, &n.SenderID, &n.Type, &n.Message,
		&kind, &n.Related.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return Notification{}, err
	}
	n.Related.Kind = RelatedKind(kind)
	return n, nil
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, notificationID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read=TRUE WHERE id=$1`, notificationID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkAllNotificationsRead(ctx context.Context, recipientID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read=TRUE WHERE recipient_id=$1 AND is_read=FALSE
	`, recipientID)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteNotification(ctx context.Context, notificationID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id=$1`, notificationID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
