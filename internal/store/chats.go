package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateChat is returned when a concurrent request already created the
// direct chat for the same member pair. Callers resolve it by re-fetching.
var ErrDuplicateChat = errors.New("direct chat already exists")

// DirectChatKey builds the unique key for a 1:1 chat: the two member ids in
// lexical order, plus the project scope when present.
func DirectChatKey(userA, userB, projectID string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	key := strings.Join(pair, ":")
	if projectID != "" {
		key += ":" + projectID
	}
	return key
}

func (s *PostgresStore) FindDirectChat(ctx context.Context, userA, userB, projectID string) (Chat, error) {
	var chat Chat
	var groupAdmin, project, latest sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, is_group_chat, chat_name, group_admin_id, project_id, latest_message_id, created_at, updated_at
		FROM chats WHERE pair_key = $1
	`, DirectChatKey(userA, userB, projectID)).Scan(
		&chat.ID, &chat.IsGroupChat, &chat.ChatName, &groupAdmin, &project, &latest, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		return Chat{}, err
	}
	chat.GroupAdminID = groupAdmin.String
	chat.ProjectID = project.String
	chat.LatestMessageID = latest.String
	return s.populateChat(ctx, chat)
}

// CreateDirectChat inserts a 1:1 chat. The unique index on pair_key turns a
// concurrent duplicate insert into ErrDuplicateChat.
func (s *PostgresStore) CreateDirectChat(ctx context.Context, userA, userB, projectID string) (Chat, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Chat{}, err
	}
	defer tx.Rollback()

	var chat Chat
	err = tx.QueryRowContext(ctx, `
		INSERT INTO chats (is_group_chat, pair_key, project_id)
		VALUES (FALSE, $1, NULLIF($2, '')::uuid)
		RETURNING id, created_at, updated_at
	`, DirectChatKey(userA, userB, projectID), projectID).Scan(&chat.ID, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Chat{}, ErrDuplicateChat
		}
		return Chat{}, fmt.Errorf("insert direct chat: %w", err)
	}
	chat.ProjectID = projectID

	for _, userID := range []string{userA, userB} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2)
		`, chat.ID, userID); err != nil {
			return Chat{}, fmt.Errorf("insert chat member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Chat{}, err
	}
	return s.populateChat(ctx, chat)
}

func (s *PostgresStore) CreateGroupChat(ctx context.Context, name, adminID, projectID string, memberIDs []string) (Chat, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Chat{}, err
	}
	defer tx.Rollback()

	var chat Chat
	err = tx.QueryRowContext(ctx, `
		INSERT INTO chats (is_group_chat, chat_name, group_admin_id, project_id)
		VALUES (TRUE, $1, $2, NULLIF($3, '')::uuid)
		RETURNING id, created_at, updated_at
	`, name, adminID, projectID).Scan(&chat.ID, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		return Chat{}, fmt.Errorf("insert group chat: %w", err)
	}
	chat.IsGroupChat = true
	chat.ChatName = name
	chat.GroupAdminID = adminID
	chat.ProjectID = projectID

	// The creator belongs to the chat too; callers pass only the others.
	for _, userID := range append([]string{adminID}, memberIDs...) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, chat.ID, userID); err != nil {
			return Chat{}, fmt.Errorf("insert chat member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Chat{}, err
	}
	return s.populateChat(ctx, chat)
}

func (s *PostgresStore) GetChat(ctx context.Context, chatID string) (Chat, error) {
	var chat Chat
	var groupAdmin, project, latest sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, is_group_chat, chat_name, group_admin_id, project_id, latest_message_id, created_at, updated_at
		FROM chats WHERE id=$1
	`, chatID).Scan(&chat.ID, &chat.IsGroupChat, &chat.ChatName, &groupAdmin, &project, &latest, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		return Chat{}, err
	}
	chat.GroupAdminID = groupAdmin.String
	chat.ProjectID = project.String
	chat.LatestMessageID = latest.String
	return s.populateChat(ctx, chat)
}

func (s *PostgresStore) ListChats(ctx context.Context, userID, projectID string) ([]Chat, error) {
	query := `
		SELECT c.id, c.is_group_chat, c.chat_name, c.group_admin_id, c.project_id, c.latest_message_id, c.created_at, c.updated_at
		FROM chats c
		JOIN chat_members cm ON cm.chat_id = c.id
		WHERE cm.user_id = $1
	`
	args := []any{userID}
	if projectID != "" {
		query += ` AND c.project_id = $2`
		args = append(args, projectID)
	}
	query += ` ORDER BY c.updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var chat Chat
		var groupAdmin, project, latest sql.NullString
		if err := rows.Scan(&chat.ID, &chat.IsGroupChat, &chat.ChatName, &groupAdmin, &project, &latest, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, err
		}
		chat.GroupAdminID = groupAdmin.String
		chat.ProjectID = project.String
		chat.LatestMessageID = latest.String
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range chats {
		chats[i], err = s.populateChat(ctx, chats[i])
		if err != nil {
			return nil, err
		}
	}
	return chats, nil
}

// AddChatMember is idempotent: adding an existing member is a no-op.
func (s *PostgresStore) AddChatMember(ctx context.Context, chatID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, chatID, userID)
	if err != nil {
		return fmt.Errorf("add chat member: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsChatMember(ctx context.Context, chatID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM chat_members WHERE chat_id=$1 AND user_id=$2)
	`, chatID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check chat member: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListChatMemberIDs(ctx context.Context, chatID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM chat_members WHERE chat_id=$1`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list chat members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) populateChat(ctx context.Context, chat Chat) (Chat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.display_name, u.email, u.role, u.avatar_url
		FROM chat_members cm JOIN users u ON u.id = cm.user_id
		WHERE cm.chat_id = $1
		ORDER BY u.display_name
	`, chat.ID)
	if err != nil {
		return Chat{}, fmt.Errorf("populate chat members: %w", err)
	}
	defer rows.Close()

	chat.Members = chat.Members[:0]
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.DisplayName, &user.Email, &user.Role, &user.AvatarURL); err != nil {
			return Chat{}, err
		}
		chat.Members = append(chat.Members, user)
	}
	if err := rows.Err(); err != nil {
		return Chat{}, err
	}

	if chat.LatestMessageID != "" {
		latest, err := s.GetMessage(ctx, chat.LatestMessageID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return Chat{}, err
		}
		if err == nil {
			chat.LatestMessage = &latest
		}
	}
	return chat, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
