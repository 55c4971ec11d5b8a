package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Journal records every broadcast event for offline processing (session
// replays, analytics). Implementations must not block the hub loop.
type Journal interface {
	Record(room string, payload []byte)
}

// SnapshotStore persists drawing snapshots attached to group submissions
// and returns a URL the group can fetch them from.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

const redisRoomPrefix = "hubroom:"

// roomMessage is an event already serialized for one room.
type roomMessage struct {
	room    string
	payload []byte
}

// Hub coordinates every websocket client across the four hub endpoints.
// Rooms are namespaced by hub kind ("session:<id>", "group:<id>",
// "ticket:<id>") so ids cannot collide across concerns. When Redis is
// configured, broadcasts are published there and delivered on pub/sub
// receipt, which keeps multiple server instances consistent; without Redis
// the hub delivers locally.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]bool
	rooms    map[string]map[*Client]bool
	sessions map[string]*liveSession

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage

	redis   *redis.Client
	journal Journal
	store   SnapshotStore

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a hub. redisClient, journal and store are all optional; a nil
// value disables that integration.
func New(redisClient *redis.Client, journal Journal, store SnapshotStore) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		sessions:   make(map[string]*liveSession),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomMessage, 256),
		redis:      redisClient,
		journal:    journal,
		store:      store,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run drives the hub loop until Stop is called.
func (h *Hub) Run() {
	if h.redis != nil {
		go h.redisListener()
	}

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.deliverLocal(msg.room, msg.payload)

		case <-h.ctx.Done():
			slog.Info("hub shutting down")
			return
		}
	}
}

// Stop cancels the hub loop and the Redis listener.
func (h *Hub) Stop() {
	h.cancel()
}

func (h *Hub) registerClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()
	slog.Info("hub client connected", "client", c.id, "kind", c.kind, "guest", c.guest, "total", total)
}

func (h *Hub) unregisterClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	rooms := c.roomList()
	for _, room := range rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	total := len(h.clients)
	h.mu.Unlock()

	c.closeSend()
	slog.Info("hub client disconnected", "client", c.id, "kind", c.kind, "total", total)

	// A dropped session client leaves its roster like an explicit leave
	// would; the remaining participants see the departure.
	for _, room := range rooms {
		if sessionID, ok := strings.CutPrefix(room, "session:"); ok {
			h.announceParticipantLeft(sessionID, c)
		}
	}
}

func (h *Hub) addToRoom(c *Client, room string) {
	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	h.mu.Unlock()
	c.addRoom(room)
}

func (h *Hub) removeFromRoom(c *Client, room string) {
	h.mu.Lock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()
	c.removeRoom(room)
}

// session returns the live state for a session id, creating it on first
// touch.
func (h *Hub) session(id string) *liveSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	ls, ok := h.sessions[id]
	if !ok {
		ls = newLiveSession(id)
		h.sessions[id] = ls
	}
	return ls
}

// BroadcastToRoom pushes one event to every member of a room. With Redis
// configured the event travels through pub/sub so every server instance
// delivers it; otherwise it is delivered locally. Either way the journal
// records it.
func (h *Hub) BroadcastToRoom(room string, event EventType, data any) {
	payload, err := json.Marshal(NewEventFrame(event, data))
	if err != nil {
		slog.Error("hub failed to marshal event", "event", event, "error", err)
		return
	}

	if h.journal != nil {
		h.journal.Record(room, payload)
	}

	if h.redis != nil {
		if err := h.redis.Publish(h.ctx, redisRoomPrefix+room, payload).Err(); err != nil {
			slog.Error("hub redis publish failed, falling back to local delivery", "room", room, "error", err)
			h.enqueueLocal(room, payload)
		}
		return
	}
	h.enqueueLocal(room, payload)
}

// BroadcastNotification pushes an admin notification to every client on the
// notifications hub.
func (h *Hub) BroadcastNotification(level, title, message string) {
	h.BroadcastToRoom(notificationsRoom, EventAdminNotification, map[string]any{
		"level":   level,
		"title":   title,
		"message": message,
	})
}

func (h *Hub) enqueueLocal(room string, payload []byte) {
	select {
	case h.broadcast <- roomMessage{room: room, payload: payload}:
	default:
		slog.Warn("hub broadcast channel full, dropping event", "room", room)
	}
}

func (h *Hub) deliverLocal(room string, payload []byte) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if !c.trySend(payload) {
			// Slow consumer: drop the client rather than stall the room.
			slog.Warn("hub dropping slow client", "client", c.id, "room", room)
			c.close()
		}
	}
}

// redisListener forwards room events published by any server instance to
// the local members of those rooms.
func (h *Hub) redisListener() {
	pubsub := h.redis.PSubscribe(h.ctx, redisRoomPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			room := strings.TrimPrefix(msg.Channel, redisRoomPrefix)
			h.deliverLocal(room, []byte(msg.Payload))

		case <-h.ctx.Done():
			return
		}
	}
}

// announceParticipantLeft updates the roster and tells the room.
func (h *Hub) announceParticipantLeft(sessionID string, c *Client) {
	ls := h.session(sessionID)
	total := ls.removeParticipant(c.participantID())
	h.BroadcastToRoom("session:"+sessionID, EventParticipantLeft, map[string]any{
		"sessionId":         sessionID,
		"participantId":     c.participantID(),
		"totalParticipants": total,
	})
}

// RoomSize reports how many local clients a room holds.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ClientCount reports the number of connected local clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
