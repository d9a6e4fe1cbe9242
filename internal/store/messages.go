package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// InsertMessage persists a message, seeds the sender's read receipt and bumps
// the chat's latest-message pointer in one transaction.
func (s *PostgresStore) InsertMessage(ctx context.Context, msg Message) (Message, error) {
	attachments, err := json.Marshal(msg.Attachments)
	if err != nil {
		return Message{}, fmt.Errorf("marshal attachments: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (chat_id, sender_id, content, attachments, reply_to_id, is_system)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6)
		RETURNING id, created_at
	`, msg.ChatID, msg.SenderID, msg.Content, attachments, msg.ReplyToID, msg.IsSystem).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}

	// readBy always contains at least the sender
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO message_reads (message_id, user_id) VALUES ($1, $2)
	`, msg.ID, msg.SenderID); err != nil {
		return Message{}, fmt.Errorf("insert sender read receipt: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE chats SET latest_message_id=$2, updated_at=NOW() WHERE id=$1
	`, msg.ChatID, msg.ID); err != nil {
		return Message{}, fmt.Errorf("update latest message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Message{}, err
	}
	return s.GetMessage(ctx, msg.ID)
}

func (s *PostgresStore) GetMessage(ctx context.Context, messageID string) (Message, error) {
	const query = `
		SELECT m.id, m.chat_id, m.sender_id, u.display_name, u.avatar_url,
			m.content, m.attachments, COALESCE(m.reply_to_id::text, ''),
			COALESCE(r.content, ''), m.is_system, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		LEFT JOIN messages r ON r.id = m.reply_to_id
		WHERE m.id = $1
	`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, messageID))
	if err != nil {
		return Message{}, err
	}
	receipts, err := s.listReadReceipts(ctx, messageID)
	if err != nil {
		return Message{}, err
	}
	msg.ReadBy = receipts
	return msg, nil
}

// ListMessages returns the chat history oldest first.
func (s *PostgresStore) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	const query = `
		SELECT m.id, m.chat_id, m.sender_id, u.display_name, u.avatar_url,
			m.content, m.attachments, COALESCE(m.reply_to_id::text, ''),
			COALESCE(r.content, ''), m.is_system, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		LEFT JOIN messages r ON r.id = m.reply_to_id
		WHERE m.chat_id = $1
		ORDER BY m.created_at ASC, m.id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range messages {
		receipts, err := s.listReadReceipts(ctx, messages[i].ID)
		if err != nil {
			return nil, err
		}
		messages[i].ReadBy = receipts
	}
	return messages, nil
}

// MarkChatRead adds the user's receipt to every message in the chat not
// already marked. Commutative and idempotent: re-running changes nothing.
func (s *PostgresStore) MarkChatRead(ctx context.Context, chatID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO message_reads (message_id, user_id)
		SELECT m.id, $2 FROM messages m WHERE m.chat_id = $1
		ON CONFLICT DO NOTHING
	`, chatID, userID)
	if err != nil {
		return fmt.Errorf("mark chat read: %w", err)
	}
	return nil
}

func (s *PostgresStore) listReadReceipts(ctx context.Context, messageID string) ([]ReadReceipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, read_at FROM message_reads WHERE message_id=$1 ORDER BY read_at
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("list read receipts: %w", err)
	}
	defer rows.Close()

	var receipts []ReadReceipt
	for rows.Next() {
		var receipt ReadReceipt
		if err := rows.Scan(&receipt.UserID, &receipt.ReadAt); err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	return receipts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (Message, error) {
	var msg Message
	var attachments []byte
	err := row.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.SenderName, &msg.SenderAvatarURL,
		&msg.Content, &attachments, &msg.ReplyToID, &msg.ReplyPreview, &msg.IsSystem, &msg.CreatedAt)
	if err != nil {
		return Message{}, err
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &msg.Attachments); err != nil {
			return Message{}, fmt.Errorf("unmarshal attachments: %w", err)
		}
	}
	return msg, nil
}

var _ rowScanner = (*sql.Row)(nil)
