package hubclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the hub
	writeWait = 10 * time.Second

	// Handshake timeout for each (re)connect attempt
	dialWait = 15 * time.Second
)

var (
	// ErrConnectionBusy is returned by Start when the connection is mid
	// connect or mid reconnect. Starting while connected is a no-op, not an
	// error.
	ErrConnectionBusy = errors.New("hubclient: connection is not in a startable state")

	// ErrNotConnected is returned by the command invoker when the
	// connection is not established. Room joins treat this as a silent
	// no-op instead.
	ErrNotConnected = errors.New("hubclient: not connected")

	// ErrMissingRoomID is returned when a room-scoped command is invoked
	// with an empty room id.
	ErrMissingRoomID = errors.New("hubclient: room id is required")

	// ErrCredentialRequired is returned by a connect attempt against a hub
	// that disallows guest access when no usable credential is available.
	ErrCredentialRequired = errors.New("hubclient: hub requires an authenticated credential")
)

// ConnectionState enumerates the lifecycle of a hub connection.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// HubProfile describes one logical hub endpoint: where it lives, which
// commands scope room membership, and whether anonymous connections are
// allowed. The four hubs the product exposes are predeclared below.
type HubProfile struct {
	Path         string
	JoinCommand  string
	LeaveCommand string

	// RoomField is the payload key the server expects the room id under.
	RoomField string

	// AllowGuest permits connecting without a credential. Only the session
	// hub allows it: students join live sessions by code without accounts.
	AllowGuest bool
}

var (
	SessionHub = HubProfile{
		Path:         "/hubs/session",
		JoinCommand:  "JoinSession",
		LeaveCommand: "LeaveSession",
		RoomField:    "sessionId",
		AllowGuest:   true,
	}

	GroupCollaborationHub = HubProfile{
		Path:         "/hubs/groupCollaboration",
		JoinCommand:  "JoinGroup",
		LeaveCommand: "LeaveGroup",
		RoomField:    "groupId",
	}

	SupportTicketHub = HubProfile{
		Path:         "/hubs/support-tickets",
		JoinCommand:  "JoinTicketRoom",
		LeaveCommand: "LeaveTicketRoom",
		RoomField:    "ticketId",
	}

	// NotificationHub is push-only; membership is implied by connecting.
	NotificationHub = HubProfile{
		Path: "/hubs/notifications",
	}
)

// Options configures a Connection. CredentialSupplier is re-invoked on every
// (re)connect attempt rather than captured once, so a token refreshed while
// the connection was down is honored transparently.
type Options struct {
	CredentialSupplier func() string

	// OnClose fires when the connection reaches a final disconnected state
	// (explicit Stop passes a nil error).
	OnClose func(err error)

	// OnReconnecting fires when the transport drops and the automatic
	// reconnect loop takes over.
	OnReconnecting func(err error)

	// OnReconnected fires after the reconnect loop re-establishes the
	// transport. Room membership does not survive a reconnect; the owner
	// re-joins from this callback.
	OnReconnected func()
}

// Frame is the wire envelope shared by commands and events.
type Frame struct {
	ID        string         `json:"id,omitempty"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp int64          `json:"timestamp,omitempty"`
}

// Connection is one logical channel to one hub endpoint. It is owned by
// exactly one view/feature; two features needing hub access use two
// connections so one hub's reconnect storm cannot stall the other's.
type Connection struct {
	endpoint string
	profile  HubProfile
	opts     Options

	mu       sync.Mutex
	state    ConnectionState
	conn     *websocket.Conn
	rooms    map[string]bool
	handlers HandlerMap
	stopping bool
	stopCh   chan struct{}

	// writeMu serializes frame writes; gorilla connections support one
	// concurrent writer.
	writeMu sync.Mutex
}

// NewConnection builds a connection bound to one hub endpoint. It returns
// ok=false without attempting any network traffic when the base URL is
// missing, or when the hub disallows guests and no usable credential is
// available right now. The caller shows an auth-required state instead of
// attempting and failing a round-trip.
func NewConnection(baseURL string, profile HubProfile, opts Options) (*Connection, bool) {
	if strings.TrimSpace(baseURL) == "" {
		slog.Warn("hubclient: no API base URL configured, refusing to build connection", "hub", profile.Path)
		return nil, false
	}
	if !profile.AllowGuest && !hasUsableCredential(opts.CredentialSupplier) {
		slog.Warn("hubclient: hub requires auth and no usable credential exists", "hub", profile.Path)
		return nil, false
	}
	return &Connection{
		endpoint: hubEndpoint(baseURL, profile.Path),
		profile:  profile,
		opts:     opts,
		state:    StateDisconnected,
		rooms:    make(map[string]bool),
		handlers: make(HandlerMap),
	}, true
}

func hasUsableCredential(supplier func() string) bool {
	return supplier != nil && IsTokenUsable(supplier())
}

// hubEndpoint appends the hub path to the API base URL and rewrites the
// scheme for the websocket dialer. Trailing slashes on the base are
// tolerated.
func hubEndpoint(baseURL, path string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + path
}

// State returns the current lifecycle state.
func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Hub returns the profile this connection is bound to.
func (c *Connection) Hub() HubProfile {
	return c.profile
}

// Start establishes the transport. Starting an already-connected connection
// is a successful no-op; starting while connecting or reconnecting is
// rejected with ErrConnectionBusy. A dial failure is returned to the caller
// for UI-level reporting and leaves the connection disconnected; Start does
// not retry on its own.
func (c *Connection) Start(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateConnected:
		c.mu.Unlock()
		return nil
	case StateConnecting, StateReconnecting:
		c.mu.Unlock()
		return ErrConnectionBusy
	}
	c.state = StateConnecting
	c.stopping = false
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return fmt.Errorf("hubclient: connect to %s: %w", c.profile.Path, err)
	}

	c.mu.Lock()
	if c.stopping {
		// Stop raced the dial; honor the stop.
		c.state = StateDisconnected
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Stop tears down the transport. Stopping an already-disconnected
// connection is a no-op. Transport errors during stop are logged and
// swallowed: a failing stop must never prevent the owner from proceeding
// with unmount/cleanup.
func (c *Connection) Stop() {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.stopping = true
	conn := c.conn
	c.conn = nil
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
	c.state = StateDisconnected
	// Membership dies with the connection.
	c.rooms = make(map[string]bool)
	c.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(writeWait)
		if err := conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline); err != nil {
			slog.Debug("hubclient: close handshake failed", "hub", c.profile.Path, "error", err)
		}
		if err := conn.Close(); err != nil {
			slog.Debug("hubclient: transport close failed", "hub", c.profile.Path, "error", err)
		}
	}

	if c.opts.OnClose != nil {
		c.opts.OnClose(nil)
	}
}

// dial performs one transport-level connect attempt, evaluating the
// credential supplier fresh so a token refreshed since the last attempt is
// picked up.
func (c *Connection) dial(ctx context.Context) (*websocket.Conn, error) {
	dialURL := c.endpoint
	token := ""
	if c.opts.CredentialSupplier != nil {
		token = strings.TrimPrefix(c.opts.CredentialSupplier(), "Bearer ")
	}

	if IsTokenUsable(token) {
		dialURL += "?token=" + url.QueryEscape(token)
	} else if !c.profile.AllowGuest {
		return nil, ErrCredentialRequired
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialWait)
	defer cancel()

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, dialURL, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return conn, nil
}

// readLoop pumps inbound frames from one physical transport into the
// dispatcher until the transport dies, then hands off to the reconnect
// loop (or finishes the stop that killed it).
func (c *Connection) readLoop(conn *websocket.Conn) {
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			c.handleTransportLoss(conn, err)
			return
		}
		c.dispatch(frame)
	}
}

func (c *Connection) handleTransportLoss(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		// This transport was already replaced or torn down by Stop.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.rooms = make(map[string]bool)
	if c.stopping {
		c.state = StateDisconnected
		c.mu.Unlock()
		if c.opts.OnClose != nil {
			c.opts.OnClose(nil)
		}
		return
	}
	c.state = StateReconnecting
	stopCh := c.stopCh
	c.mu.Unlock()

	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		slog.Warn("hubclient: transport lost", "hub", c.profile.Path, "error", err)
	}
	if c.opts.OnReconnecting != nil {
		c.opts.OnReconnecting(err)
	}
	go c.reconnectLoop(stopCh)
}

// reconnectLoop re-dials on the policy schedule until it succeeds or the
// owner stops the connection.
func (c *Connection) reconnectLoop(stopCh chan struct{}) {
	for attempt := 0; ; attempt++ {
		if delay := ReconnectDelay(attempt); delay > 0 {
			select {
			case <-time.After(delay):
			case <-stopCh:
				return
			}
		} else {
			select {
			case <-stopCh:
				return
			default:
			}
		}

		conn, err := c.dial(context.Background())
		if err != nil {
			slog.Warn("hubclient: reconnect attempt failed", "hub", c.profile.Path, "attempt", attempt, "error", err)
			continue
		}

		c.mu.Lock()
		if c.stopping || c.state != StateReconnecting {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.state = StateConnected
		c.mu.Unlock()

		slog.Info("hubclient: reconnected", "hub", c.profile.Path, "attempts", attempt+1)
		if c.opts.OnReconnected != nil {
			c.opts.OnReconnected()
		}
		go c.readLoop(conn)
		return
	}
}

// sendFrame writes one frame to the current transport.
func (c *Connection) sendFrame(frame Frame) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}

func newFrame(command string, data map[string]any) Frame {
	return Frame{
		ID:        uuid.New().String(),
		Type:      command,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}
