package handler

import (
	"encoding/json"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"nocturne/internal/adapter/api/middleware"
	"nocturne/internal/chatsync"
	"nocturne/internal/domain/entity"
	ws "nocturne/internal/infrastructure/websocket"
	"nocturne/pkg/errors"
)

// WebSocketHandler streams the caller's conversation list. The connection
// also bounds the sync session: the engine starts with the user's first
// connection and stops when their last connection closes.
type WebSocketHandler struct {
	wsManager      *ws.Manager
	sessions       *chatsync.SessionManager
	authMiddleware *middleware.AuthMiddleware
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func NewWebSocketHandler(wsManager *ws.Manager, sessions *chatsync.SessionManager, authMiddleware *middleware.AuthMiddleware) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:      wsManager,
		sessions:       sessions,
		authMiddleware: authMiddleware,
	}
}

type conversationsPayload struct {
	Type string                       `json:"type"`
	Data []entity.ConversationSummary `json:"data"`
}

// EncodeConversations wraps a conversation snapshot in the websocket
// envelope. The session manager's update hook uses it for pushes.
func EncodeConversations(conversations []entity.ConversationSummary) ([]byte, error) {
	return json.Marshal(conversationsPayload{Type: "conversations", Data: conversations})
}

func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	// Websocket clients cannot set headers on upgrade, so the ID token
	// arrives as a query parameter.
	token := c.QueryParam("token")
	if token == "" {
		return errors.Unauthorized("Authentication required", nil)
	}
	userID, err := h.authMiddleware.VerifyToken(c.Request().Context(), token)
	if err != nil {
		return errors.Unauthorized("Invalid or expired token", err)
	}

	engine, err := h.sessions.Acquire(userID)
	if err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.sessions.Release(userID)
		return errors.Internal("Failed to upgrade connection", err)
	}

	client := &ws.Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 16),
	}
	h.wsManager.Register <- client

	// Initial snapshot so the client renders without waiting for a change.
	if payload, err := EncodeConversations(engine.Conversations()); err == nil {
		h.wsManager.SendToUser(userID, payload)
	}

	go client.WritePump()
	client.ReadPump(h.wsManager)

	h.sessions.Release(userID)
	return nil
}
