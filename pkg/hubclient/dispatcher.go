package hubclient

import (
	"log/slog"
)

// EventHandler consumes one normalized event. Handlers run on the
// connection's read goroutine; they must not block on network I/O.
type EventHandler func(Event)

// HandlerMap maps canonical event names to handlers.
type HandlerMap map[string]EventHandler

// RegisterHandlers attaches one handler per named server event. Raw event
// names are accepted and resolved through the alias table, so registering
// under "MapStateSync" and "FocusChanged" is the same registration.
// Registering replaces any previous handler for the same event.
func (c *Connection) RegisterHandlers(handlers HandlerMap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, handler := range handlers {
		if handler == nil {
			continue
		}
		c.handlers[CanonicalEventName(name)] = handler
	}
}

// UnregisterHandlers detaches every registered handler. Idempotent: safe on
// a connection that has none attached.
func (c *Connection) UnregisterHandlers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = make(HandlerMap)
}

// dispatch normalizes one inbound frame and hands it to its handler. The
// dispatcher itself mutates no shared state; reconciling events into view
// state is the subscriber's job.
func (c *Connection) dispatch(frame Frame) {
	event, ok := NormalizeEvent(frame.Type, frame.Data)
	if !ok {
		slog.Debug("hubclient: dropping unrecognized event", "hub", c.profile.Path, "event", frame.Type)
		return
	}

	c.mu.Lock()
	handler := c.handlers[event.EventName()]
	c.mu.Unlock()

	if handler == nil {
		return
	}
	handler(event)
}
