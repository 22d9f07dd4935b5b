package websocket

import (
	"context"

	"github.com/gorilla/websocket"

	"nocturne/pkg/logger"
)

// Client is one connected device for a user.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

type outbound struct {
	userID  string
	payload []byte
}

// Manager tracks active connections and pushes conversation-list updates to
// them. A user may be connected from several devices at once. Registration,
// removal and fan-out all run on one loop, so a client's Send channel is
// never written after it is closed.
type Manager struct {
	clients    map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	outbound   chan outbound
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		outbound:   make(chan outbound, 64),
	}
}

// Start runs the manager loop until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				if m.clients[client.UserID] == nil {
					m.clients[client.UserID] = make(map[*Client]struct{})
				}
				m.clients[client.UserID][client] = struct{}{}
				logger.Debug("Client connected: %s", client.UserID)

			case client := <-m.Unregister:
				if conns, ok := m.clients[client.UserID]; ok {
					if _, ok := conns[client]; ok {
						delete(conns, client)
						close(client.Send)
						if len(conns) == 0 {
							delete(m.clients, client.UserID)
						}
					}
				}
				logger.Debug("Client disconnected: %s", client.UserID)

			case msg := <-m.outbound:
				for client := range m.clients[msg.userID] {
					select {
					case client.Send <- msg.payload:
					default:
						logger.Warn("Dropping push for slow websocket client of user %s", msg.userID)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()
}

// SendToUser pushes a payload to every device the user has connected.
func (m *Manager) SendToUser(userID string, payload []byte) {
	m.outbound <- outbound{userID: userID, payload: payload}
}

// ReadPump drains incoming frames until the connection closes. Inbound
// content is ignored; the socket is a push channel.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("Websocket read error for user %s: %v", c.UserID, err)
			}
			return
		}
	}
}

// WritePump forwards queued payloads to the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		payload, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.Warn("Websocket write error for user %s: %v", c.UserID, err)
			return
		}
	}
}
