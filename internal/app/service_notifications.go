package app

import (
	"context"
	"log"

	"atelier/api/internal/realtime"
	"atelier/api/internal/store"
)

// notify writes one notification per recipient and pushes it to each
// recipient's personal room. Best-effort: failures are logged and
// never surface to the producing operation.
func (s *Service) notify(ctx context.Context, recipientIDs []string, senderID, notifType, message string, related store.RelatedRef) {
	for _, recipientID := range recipientIDs {
		if recipientID == "" || recipientID == senderID {
			continue
		}
		saved, err := s.store.InsertNotification(ctx, store.Notification{
			RecipientID: recipientID,
			SenderID:    senderID,
			Type:        notifType,
			Message:     message,
			Related:     related,
		})
		if err != nil {
			log.Printf("notify: insert %s for recipient=%s: %v", notifType, recipientID, err)
			continue
		}
		s.hub.SendToUser(recipientID, realtime.NewEvent(realtime.EventNotification, notificationPayload(saved)))
	}
}

// notifyAdmins fans a notification out to every admin account.
func (s *Service) notifyAdmins(ctx context.Context, senderID, notifType, message string, related store.RelatedRef) {
	admins, err := s.store.ListUsersByRole(ctx, "admin")
	if err != nil {
		log.Printf("notify: list admins: %v", err)
		return
	}
	ids := make([]string, 0, len(admins))
	for _, admin := range admins {
		ids = append(ids, admin.ID)
	}
	s.notify(ctx, ids, senderID, notifType, message, related)
}

func notificationPayload(n store.Notification) map[string]any {
	return map[string]any{
		"id":          n.ID,
		"recipientId": n.RecipientID,
		"senderId":    n.SenderID,
		"senderName":  n.SenderName,
		"type":        n.Type,
		"message":     n.Message,
		"relatedKind": n.Related.Kind,
		"relatedId":   n.Related.ID,
		"isRead":      n.IsRead,
		"createdAt":   n.CreatedAt,
	}
}

type NotificationList struct {
	UnreadCount int                  `json:"unreadCount"`
	Items       []store.Notification `json:"items"`
}

// ListNotifications returns the viewer's latest notifications (capped
// at 50 by the store) with the unread count alongside.
func (s *Service) ListNotifications(ctx context.Context, session Session) (NotificationList, error) {
	items, unread, err := s.store.ListNotifications(ctx, session.UserID)
	if err != nil {
		return NotificationList{}, err
	}
	if items == nil {
		items = []store.Notification{}
	}
	return NotificationList{UnreadCount: unread, Items: items}, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, session Session, notificationID string) error {
	n, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.RecipientID != session.UserID {
		return forbiddenError("notification belongs to another user")
	}
	return s.store.MarkNotificationRead(ctx, notificationID)
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, session Session) error {
	return s.store.MarkAllNotificationsRead(ctx, session.UserID)
}

func (s *Service) DeleteNotification(ctx context.Context, session Session, notificationID string) error {
	n, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.RecipientID != session.UserID {
		return forbiddenError("notification belongs to another user")
	}
	return s.store.DeleteNotification(ctx, notificationID)
}
