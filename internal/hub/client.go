package hub

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// Kind names the hub endpoint a client connected through. It namespaces
// rooms and gates which commands the client may issue.
type Kind string

const (
	KindSession       Kind = "session"
	KindGroup         Kind = "group"
	KindTicket        Kind = "ticket"
	KindNotifications Kind = "notifications"
)

// notificationsRoom is the implicit room every notifications-hub client
// joins; that hub is push-only.
const notificationsRoom = "notifications:all"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin is enforced by the reverse proxy in deployment.
		return true
	},
}

// Client is one websocket connection on one hub endpoint.
type Client struct {
	id          string
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	kind        Kind
	userID      string
	displayName string
	guest       bool

	mu    sync.RWMutex
	rooms map[string]bool

	sendClosed int32
	closed     int32
}

// ServeWS upgrades an HTTP request into a hub client and starts its pumps.
// userID is empty for guest connections (permitted only where the route's
// auth middleware allows it); guests are identified by their client id.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, kind Kind, userID, displayName string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &Client{
		id:          uuid.New().String(),
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, 256),
		kind:        kind,
		userID:      userID,
		displayName: displayName,
		guest:       userID == "",
		rooms:       make(map[string]bool),
	}

	select {
	case h.register <- c:
	case <-h.ctx.Done():
		conn.Close()
		return
	}
	if kind == KindNotifications {
		h.addToRoom(c, notificationsRoom)
	}

	go c.writePump()
	go c.readPump()
}

// participantID identifies this client in rosters and leaderboards: the
// account id when authenticated, the per-connection id for guests.
func (c *Client) participantID() string {
	if c.userID != "" {
		return c.userID
	}
	return c.id
}

func (c *Client) addRoom(room string) {
	c.mu.Lock()
	c.rooms[room] = true
	c.mu.Unlock()
}

func (c *Client) removeRoom(room string) {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
}

func (c *Client) inRoom(room string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[room]
}

func (c *Client) roomList() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// trySend queues a payload without blocking; false means the client's
// buffer is full.
func (c *Client) trySend(payload []byte) bool {
	if atomic.LoadInt32(&c.sendClosed) == 1 {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// sendEvent serializes and queues one event for this client alone.
func (c *Client) sendEvent(frame Frame) {
	payload, err := marshalFrame(frame)
	if err != nil {
		slog.Error("failed to marshal client event", "client", c.id, "error", err)
		return
	}
	if !c.trySend(payload) {
		slog.Warn("client send buffer full, dropping event", "client", c.id)
	}
}

func (c *Client) closeSend() {
	if atomic.CompareAndSwapInt32(&c.sendClosed, 0, 1) {
		close(c.send)
	}
}

func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.conn.Close()
	}
}

// readPump pumps frames from the connection into the command handlers.
func (c *Client) readPump() {
	defer func() {
		// A stopped hub no longer drains unregister; exit through the hub
		// context instead of blocking forever.
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
			c.closeSend()
		}
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame inboundFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("client read error", "client", c.id, "error", err)
			}
			return
		}
		c.hub.handleCommand(c, frame)
	}
}

// writePump pumps queued payloads to the connection and keeps it alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
