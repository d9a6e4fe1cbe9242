package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"atelier/api/internal/util"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxFrameSize   = 1 << 16
	sendBufferSize = 32
)

// Client identity established during the WebSocket handshake.
type Client struct {
	UserID string
	Name   string
	Role   string
}

// Authenticator validates a bearer token into a client identity.
type Authenticator func(ctx context.Context, token string) (Client, error)

// MembershipChecker reports whether a user may join a chat room.
type MembershipChecker func(ctx context.Context, userID, chatID string) (bool, error)

// MessageInput is an inbound chat message sent over the socket.
type MessageInput struct {
	ChatID    string `json:"chatId"`
	Content   string `json:"content"`
	ReplyToID string `json:"replyTo"`
}

// MessagePoster persists a message on behalf of a socket client. The
// implementation broadcasts to the chat room after persisting, so the
// gateway itself never fans out.
type MessagePoster func(ctx context.Context, sender Client, input MessageInput) error

// Gateway upgrades HTTP requests to WebSocket connections and routes
// inbound frames to the hub.
type Gateway struct {
	hub          *Hub
	authenticate Authenticator
	isChatMember MembershipChecker
	postMessage  MessagePoster
	upgrader     websocket.Upgrader
}

func NewGateway(hub *Hub, authenticate Authenticator, isChatMember MembershipChecker, postMessage MessagePoster, allowedOrigin string) *Gateway {
	return &Gateway{
		hub:          hub,
		authenticate: authenticate,
		isChatMember: isChatMember,
		postMessage:  postMessage,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// ServeHTTP authenticates the request and runs the connection until
// the peer goes away. Authentication failures are rejected before the
// upgrade so clients get a plain 401.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	client, err := g.authenticate(r.Context(), token)
	if err != nil {
		http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"invalid or missing token"}}`, http.StatusUnauthorized)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed for user=%s: %v", client.UserID, err)
		return
	}

	conn := &connection{
		id:      util.NewID("conn"),
		client:  client,
		ws:      ws,
		gateway: g,
		out:     make(chan Event, sendBufferSize),
		done:    make(chan struct{}),
	}
	g.hub.Join(conn.id, UserRoom(client.UserID), conn.trySend)

	go conn.writePump()
	conn.trySend(NewEvent(EventConnected, map[string]string{"userId": client.UserID}))
	conn.readPump(r.Context())
}

type connection struct {
	id      string
	client  Client
	ws      *websocket.Conn
	gateway *Gateway
	out     chan Event
	done    chan struct{}
}

// trySend queues an event without blocking. A full buffer means the
// writer stopped draining, so the connection is reported stale.
func (c *connection) trySend(event Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- event:
		return true
	default:
		return false
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case <-c.done:
			return
		case event := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) readPump(ctx context.Context) {
	defer func() {
		c.gateway.hub.Unregister(c.id)
		close(c.done)
	}()
	c.ws.SetReadLimit(maxFrameSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var event Event
		if err := c.ws.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read error for user=%s: %v", c.client.UserID, err)
			}
			return
		}
		c.handleEvent(ctx, event)
	}
}

type chatPayload struct {
	ChatID string `json:"chatId"`
}

func (c *connection) handleEvent(ctx context.Context, event Event) {
	switch event.Name {
	case "join chat":
		payload, ok := c.decodeChatPayload(event)
		if !ok {
			return
		}
		member, err := c.gateway.isChatMember(ctx, c.client.UserID, payload.ChatID)
		if err != nil || !member {
			c.trySend(NewEvent(EventMessageError, map[string]string{
				"chatId":  payload.ChatID,
				"message": "not a member of this chat",
			}))
			return
		}
		c.gateway.hub.Join(c.id, ChatRoom(payload.ChatID), c.trySend)
	case "leave chat":
		if payload, ok := c.decodeChatPayload(event); ok {
			c.gateway.hub.Leave(c.id, ChatRoom(payload.ChatID))
		}
	case "send", "new message":
		var input MessageInput
		if err := json.Unmarshal(event.Data, &input); err != nil || input.ChatID == "" {
			c.trySend(NewEvent(EventMessageError, map[string]string{
				"message": "event requires a chatId",
			}))
			return
		}
		if c.gateway.postMessage == nil {
			c.trySend(NewEvent(EventMessageError, map[string]string{
				"chatId":  input.ChatID,
				"message": "messaging is not available on this connection",
			}))
			return
		}
		if err := c.gateway.postMessage(ctx, c.client, input); err != nil {
			c.trySend(NewEvent(EventMessageError, map[string]string{
				"chatId":  input.ChatID,
				"message": err.Error(),
			}))
		}
	case "typing":
		c.relayTyping(event, EventTyping)
	case "stop typing":
		c.relayTyping(event, EventStopTyping)
	default:
		c.trySend(NewEvent(EventMessageError, map[string]string{
			"message": "unknown event: " + event.Name,
		}))
	}
}

// relayTyping forwards a typing indicator to everyone else in the
// chat room. Only connections that already joined the room hear it.
func (c *connection) relayTyping(event Event, name string) {
	payload, ok := c.decodeChatPayload(event)
	if !ok {
		return
	}
	c.gateway.hub.Broadcast(ChatRoom(payload.ChatID), NewEvent(name, map[string]string{
		"chatId": payload.ChatID,
		"userId": c.client.UserID,
		"name":   c.client.Name,
	}), c.id)
}

func (c *connection) decodeChatPayload(event Event) (chatPayload, bool) {
	var payload chatPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || payload.ChatID == "" {
		c.trySend(NewEvent(EventMessageError, map[string]string{
			"message": "event requires a chatId",
		}))
		return chatPayload{}, false
	}
	return payload, true
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
