package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"atelier/api/internal/realtime"
	"atelier/api/internal/store"
)

// AccessChat returns the 1:1 chat between the caller and otherUserID,
// creating it if absent. Two callers racing on the same pair converge
// on one chat: the loser of the unique-index race re-fetches.
func (s *Service) AccessChat(ctx context.Context, session Session, otherUserID, projectID string) (store.Chat, error) {
	if otherUserID == "" {
		return store.Chat{}, validationError("userId is required")
	}
	if otherUserID == session.UserID {
		return store.Chat{}, validationError("cannot open a chat with yourself")
	}
	if _, err := s.store.GetUserByID(ctx, otherUserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Chat{}, notFoundError("user not found")
		}
		return store.Chat{}, err
	}

	chat, err := s.store.FindDirectChat(ctx, session.UserID, otherUserID, projectID)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.Chat{}, err
	}

	chat, err = s.store.CreateDirectChat(ctx, session.UserID, otherUserID, projectID)
	if errors.Is(err, store.ErrDuplicateChat) {
		return s.store.FindDirectChat(ctx, session.UserID, otherUserID, projectID)
	}
	return chat, err
}

type CreateGroupChatInput struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"users"`
	ProjectID string   `json:"projectId"`
}

func (s *Service) CreateGroupChat(ctx context.Context, session Session, input CreateGroupChatInput) (store.Chat, error) {
	if strings.TrimSpace(input.Name) == "" {
		return store.Chat{}, validationError("name is required")
	}

	seen := map[string]bool{session.UserID: true}
	var members []string
	for _, id := range input.MemberIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}
	if len(members) < 2 {
		return store.Chat{}, validationError("a group chat needs at least 2 other members")
	}

	return s.store.CreateGroupChat(ctx, strings.TrimSpace(input.Name), session.UserID, input.ProjectID, members)
}

func (s *Service) ListChats(ctx context.Context, session Session, projectID string) ([]store.Chat, error) {
	chats, err := s.store.ListChats(ctx, session.UserID, projectID)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []store.Chat{}
	}
	return chats, nil
}

// AddChatMember adds a user to a group chat. Only the group admin or
// a firm admin may add members. Idempotent.
func (s *Service) AddChatMember(ctx context.Context, session Session, chatID, userID string) (store.Chat, error) {
	if userID == "" {
		return store.Chat{}, validationError("userId is required")
	}
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Chat{}, notFoundError("chat not found")
		}
		return store.Chat{}, err
	}
	if !chat.IsGroupChat {
		return store.Chat{}, validationError("members can only be added to group chats")
	}
	if chat.GroupAdminID != session.UserID && session.Role != "admin" {
		return store.Chat{}, forbiddenError("only the group admin can add members")
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Chat{}, notFoundError("user not found")
		}
		return store.Chat{}, err
	}
	if err := s.store.AddChatMember(ctx, chatID, userID); err != nil {
		return store.Chat{}, err
	}
	return s.store.GetChat(ctx, chatID)
}

type PostMessageInput struct {
	ChatID      string          `json:"chatId"`
	Content     string          `json:"content"`
	Attachments []store.FileRef `json:"attachments"`
	ReplyToID   string          `json:"replyTo"`
}

// PostMessage persists a message, then broadcasts it to the chat room
// and fans out notifications. Persistence happens before any
// broadcast; fan-out failures never fail the send.
func (s *Service) PostMessage(ctx context.Context, session Session, input PostMessageInput) (store.Message, error) {
	if input.ChatID == "" {
		return store.Message{}, validationError("chatId is required")
	}
	if strings.TrimSpace(input.Content) == "" && len(input.Attachments) == 0 {
		return store.Message{}, validationError("message needs content or an attachment")
	}

	if err := s.requireChatMember(ctx, session.UserID, input.ChatID); err != nil {
		return store.Message{}, err
	}

	msg, err := s.store.InsertMessage(ctx, store.Message{
		ChatID:      input.ChatID,
		SenderID:    session.UserID,
		Content:     strings.TrimSpace(input.Content),
		Attachments: input.Attachments,
		ReplyToID:   input.ReplyToID,
	})
	if err != nil {
		return store.Message{}, err
	}

	s.broadcastMessage(ctx, msg)
	return msg, nil
}

// broadcastMessage pushes a persisted message to its chat room and
// notifies the other members.
func (s *Service) broadcastMessage(ctx context.Context, msg store.Message) {
	s.hub.Broadcast(realtime.ChatRoom(msg.ChatID), realtime.NewEvent(realtime.EventMessageReceived, messagePayload(msg)))

	memberIDs, err := s.store.ListChatMemberIDs(ctx, msg.ChatID)
	if err != nil {
		// Fan-out is best-effort; the message is already persisted.
		return
	}
	preview := msg.Content
	if preview == "" {
		preview = "sent an attachment"
	}
	text := "New message from " + msg.SenderName + ": " + truncate(preview, 30)
	s.notify(ctx, memberIDs, msg.SenderID, store.NotifyMessage, text, store.RelatedRef{Kind: store.RelatedChat, ID: msg.ChatID})

	if s.search != nil {
		record := searchMessageRecord(msg)
		if chat, err := s.store.GetChat(ctx, msg.ChatID); err == nil {
			record.ProjectID = chat.ProjectID
		}
		s.search.IndexMessage(record)
	}
}

func (s *Service) ListMessages(ctx context.Context, session Session, chatID string) ([]store.Message, error) {
	if err := s.requireChatMember(ctx, session.UserID, chatID); err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []store.Message{}
	}
	return messages, nil
}

// MarkChatRead records read receipts for every message in the chat.
// Safe to call repeatedly.
func (s *Service) MarkChatRead(ctx context.Context, session Session, chatID string) error {
	if err := s.requireChatMember(ctx, session.UserID, chatID); err != nil {
		return err
	}
	return s.store.MarkChatRead(ctx, chatID, session.UserID)
}

func (s *Service) requireChatMember(ctx context.Context, userID, chatID string) error {
	member, err := s.store.IsChatMember(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !member {
		return forbiddenError("not a member of this chat")
	}
	return nil
}

// postSystemMessage drops an automated message into a chat, e.g. the
// project welcome line. Errors are the caller's to handle.
func (s *Service) postSystemMessage(ctx context.Context, chatID, authorID, content string) (store.Message, error) {
	msg, err := s.store.InsertMessage(ctx, store.Message{
		ChatID:   chatID,
		SenderID: authorID,
		Content:  content,
		IsSystem: true,
	})
	if err != nil {
		return store.Message{}, err
	}
	s.hub.Broadcast(realtime.ChatRoom(chatID), realtime.NewEvent(realtime.EventMessageReceived, messagePayload(msg)))
	return msg, nil
}

func messagePayload(msg store.Message) map[string]any {
	return map[string]any{
		"id":           msg.ID,
		"chatId":       msg.ChatID,
		"senderId":     msg.SenderID,
		"senderName":   msg.SenderName,
		"senderAvatar": msg.SenderAvatarURL,
		"content":      msg.Content,
		"attachments":  msg.Attachments,
		"replyTo":      msg.ReplyToID,
		"replyPreview": msg.ReplyPreview,
		"isSystem":     msg.IsSystem,
		"createdAt":    msg.CreatedAt,
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
