// Package notify delivers membership events to users over websockets and e-mail.
package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/linesmerrill/activities-api/membership"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// message is the frame pushed to the client
type message struct {
	Event membership.EventType `json:"event"`
	Data  membership.Event     `json:"data"`
}

type client struct {
	conn *websocket.Conn
	// gorilla allows one concurrent writer per connection
	writeMu sync.Mutex
}

func (c *client) write(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Hub keeps the open notification sockets, a user may have several
type Hub struct {
	mutex   sync.Mutex
	clients map[string]map[*client]struct{}
}

// NewHub returns an empty hub
func NewHub() *Hub {
	return &Hub{clients: map[string]map[*client]struct{}{}}
}

// Serve upgrades the request and keeps the socket registered for userID until
// the client goes away
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade failed", "userId", userID, "error", err)
		return
	}
	c := &client{conn: conn}
	h.register(userID, c)
	zap.S().Debugw("user connected to notifications", "userId", userID)

	defer func() {
		h.unregister(userID, c)
		conn.Close()
		zap.S().Debugw("user disconnected from notifications", "userId", userID)
	}()

	// nothing is expected from the client, reading only detects the close
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

// Send pushes event to every socket of userID, dropping sockets that fail
func (h *Hub) Send(userID string, event membership.Event) int {
	h.mutex.Lock()
	targets := make([]*client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mutex.Unlock()

	delivered := 0
	for _, c := range targets {
		if err := c.write(message{Event: event.Type, Data: event}); err != nil {
			zap.S().Warnw("error sending notification", "userId", userID, "event", event.Type, "error", err)
			h.unregister(userID, c)
			c.conn.Close()
			continue
		}
		delivered++
	}
	return delivered
}

// Connected reports how many sockets userID has open
func (h *Hub) Connected(userID string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients[userID])
}

func (h *Hub) register(userID string, c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*client]struct{}{}
	}
	h.clients[userID][c] = struct{}{}
}

func (h *Hub) unregister(userID string, c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.clients[userID], c)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}
