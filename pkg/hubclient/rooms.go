package hubclient

import (
	"errors"
	"log/slog"
	"net"
	"strings"

	"github.com/gorilla/websocket"
)

// JoinRoom subscribes this connection to a logical room (a session, a
// collaboration group, a ticket thread). Joining against a non-connected
// connection is a silent no-op: the room simply receives no events, which
// is the correct degraded behavior rather than a crash. Joining a room the
// connection already holds is harmless.
func (c *Connection) JoinRoom(roomID string) error {
	if roomID == "" {
		return ErrMissingRoomID
	}
	if c.profile.JoinCommand == "" {
		// Push-only hub; membership is implied by the connection itself.
		return nil
	}

	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		slog.Debug("hubclient: join skipped, not connected", "hub", c.profile.Path, "room", roomID)
		return nil
	}
	if c.rooms[roomID] {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	err := c.sendFrame(newFrame(c.profile.JoinCommand, map[string]any{c.profile.RoomField: roomID}))
	if err != nil {
		if IsBenignClosure(err) {
			slog.Debug("hubclient: join cancelled by closing connection", "hub", c.profile.Path, "room", roomID)
			return nil
		}
		return err
	}

	c.mu.Lock()
	c.rooms[roomID] = true
	c.mu.Unlock()
	return nil
}

// LeaveRoom unsubscribes from a room. Leaving an unjoined room is a no-op.
// A leave that races a closing connection fails with a recognizable benign
// pattern which is suppressed here; the teardown sequence (leave, then
// stop) must not be derailed by it.
func (c *Connection) LeaveRoom(roomID string) error {
	if roomID == "" || c.profile.LeaveCommand == "" {
		return nil
	}

	c.mu.Lock()
	if !c.rooms[roomID] {
		c.mu.Unlock()
		return nil
	}
	delete(c.rooms, roomID)
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected {
		return nil
	}

	err := c.sendFrame(newFrame(c.profile.LeaveCommand, map[string]any{c.profile.RoomField: roomID}))
	if err != nil {
		if IsBenignClosure(err) {
			slog.Debug("hubclient: leave cancelled by closing connection", "hub", c.profile.Path, "room", roomID)
			return nil
		}
		return err
	}
	return nil
}

// InRoom reports whether this connection currently holds a membership.
func (c *Connection) InRoom(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms[roomID]
}

// IsBenignClosure recognizes the error shapes produced when an in-flight
// call is cancelled because the underlying connection is simultaneously
// closing. These occur under every normal teardown and must not be surfaced
// as failures or pollute logs at error level.
func IsBenignClosure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotConnected) || errors.Is(err, websocket.ErrCloseSent) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "connection is stopping") ||
		strings.Contains(msg, "invocation canceled")
}
