package hubclient

import (
	"fmt"
	"log/slog"
)

// Invoke sends one fire-and-hope command to the hub. Delivery semantics are
// at-most-once: "accepted by the transport" is the only guarantee, which is
// what UI sync signals want (a missed viewport sync is superseded by the
// next one). The returned error is nil on acceptance; precondition failures
// are distinguishable through errors.Is on ErrNotConnected and
// ErrMissingRoomID so the calling UI can pick its feedback.
func (c *Connection) Invoke(command string, data map[string]any) error {
	if command == "" {
		return fmt.Errorf("hubclient: command name is required")
	}
	if c.State() != StateConnected {
		slog.Debug("hubclient: invoke rejected, not connected", "hub", c.profile.Path, "command", command)
		return ErrNotConnected
	}
	if err := c.sendFrame(newFrame(command, data)); err != nil {
		if IsBenignClosure(err) {
			slog.Debug("hubclient: invoke cancelled by closing connection", "hub", c.profile.Path, "command", command)
			return ErrNotConnected
		}
		return fmt.Errorf("hubclient: invoke %s: %w", command, err)
	}
	return nil
}

// InvokeInRoom is Invoke for room-scoped commands: it refuses an empty room
// id before any network traffic and stamps the room id under the hub's
// expected payload key.
func (c *Connection) InvokeInRoom(command, roomID string, data map[string]any) error {
	if roomID == "" {
		return ErrMissingRoomID
	}
	if data == nil {
		data = make(map[string]any)
	}
	if c.profile.RoomField != "" {
		data[c.profile.RoomField] = roomID
	}
	return c.Invoke(command, data)
}
