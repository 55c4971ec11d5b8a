package sessionsync

import (
	"context"
	"log/slog"

	"maplive-service/pkg/hubclient"
)

// Client owns one session-hub connection and its reconciler for the
// lifetime of a session view. It is constructed when the view mounts,
// passed down explicitly (never a process-wide singleton), and closed when
// the view unmounts. Independent views hold independent Clients.
type Client struct {
	conn      *hubclient.Connection
	rec       *Reconciler
	sessionID string
}

// NewClient builds a session client against the configured API base URL.
// ok=false means no connection could be built (missing base URL); guest
// access is allowed on the session hub, so an absent credential is fine.
func NewClient(baseURL, sessionID string, opts hubclient.Options) (*Client, bool) {
	c := &Client{
		rec:       NewReconciler(sessionID),
		sessionID: sessionID,
	}

	// Room membership does not survive a reconnect; re-join before the
	// owner's own callback observes the reconnected state.
	callerReconnected := opts.OnReconnected
	opts.OnReconnected = func() {
		if err := c.conn.JoinRoom(c.sessionID); err != nil {
			slog.Warn("sessionsync: re-join after reconnect failed", "session", c.sessionID, "error", err)
		}
		if callerReconnected != nil {
			callerReconnected()
		}
	}

	conn, ok := hubclient.NewConnection(baseURL, hubclient.SessionHub, opts)
	if !ok {
		return nil, false
	}
	c.conn = conn
	return c, true
}

// Connect establishes the transport, registers the reconciler's handlers
// and joins the session room. The JoinedSession snapshot that follows the
// join seeds the view state.
func (c *Client) Connect(ctx context.Context) error {
	c.conn.RegisterHandlers(c.rec.Handlers())
	if err := c.conn.Start(ctx); err != nil {
		return err
	}
	return c.conn.JoinRoom(c.sessionID)
}

// Close tears the view down: leave the room first, then detach handlers,
// then stop the transport. The ordering matters; a leave racing a closing
// connection fails with a benign pattern that must not prevent the stop.
func (c *Client) Close() {
	if err := c.conn.LeaveRoom(c.sessionID); err != nil {
		slog.Warn("sessionsync: leave failed during teardown", "session", c.sessionID, "error", err)
	}
	c.conn.UnregisterHandlers()
	c.conn.Stop()
}

// State returns a snapshot of the session projection.
func (c *Client) State() ViewState {
	return c.rec.Snapshot()
}

// Connection exposes the underlying hub connection for status indicators.
func (c *Client) Connection() *hubclient.Connection {
	return c.conn
}

// SyncMapState publishes the teacher's viewport so followers recenter.
func (c *Client) SyncMapState(viewport hubclient.MapState) error {
	return c.conn.InvokeInRoom("SyncMapState", c.sessionID, map[string]any{
		"latitude":  viewport.Latitude,
		"longitude": viewport.Longitude,
		"zoomLevel": viewport.Zoom,
		"bearing":   viewport.Bearing,
		"pitch":     viewport.Pitch,
	})
}

// SyncSegment publishes the current story segment and playback flag.
func (c *Client) SyncSegment(segment hubclient.SegmentState) error {
	return c.conn.InvokeInRoom("SyncSegment", c.sessionID, map[string]any{
		"index":     segment.Index,
		"segmentId": segment.SegmentID,
		"playing":   segment.Playing,
	})
}

// SyncMapLockState toggles whether participants may pan on their own.
func (c *Client) SyncMapLockState(locked bool) error {
	return c.conn.InvokeInRoom("SyncMapLockState", c.sessionID, map[string]any{
		"locked": locked,
	})
}

// SyncMapLayer toggles one layer's visibility for the whole session.
func (c *Client) SyncMapLayer(layerID string, visible bool) error {
	return c.conn.InvokeInRoom("SyncMapLayer", c.sessionID, map[string]any{
		"layerId": layerID,
		"visible": visible,
	})
}

// BroadcastQuestion pushes a question to every participant.
func (c *Client) BroadcastQuestion(questionID, text string, options []string, timeLimitSec int) error {
	return c.conn.InvokeInRoom("BroadcastQuestionToStudents", c.sessionID, map[string]any{
		"questionId": questionID,
		"text":       text,
		"options":    options,
		"timeLimit":  timeLimitSec,
	})
}

// ExtendQuestionTime stretches the deadline of a specific question
// instance; the server echoes it as TimeExtended.
func (c *Client) ExtendQuestionTime(instanceID string, additionalSeconds int) error {
	return c.conn.InvokeInRoom("ExtendQuestionTime", c.sessionID, map[string]any{
		"instanceId":        instanceID,
		"additionalSeconds": additionalSeconds,
	})
}

// SkipQuestion retires the active question without showing results.
func (c *Client) SkipQuestion(instanceID string) error {
	return c.conn.InvokeInRoom("SkipQuestion", c.sessionID, map[string]any{
		"instanceId": instanceID,
	})
}

// SubmitResponse records this participant's answer. Answer content is not
// echoed to other participants until results are shown.
func (c *Client) SubmitResponse(instanceID, option string) error {
	return c.conn.InvokeInRoom("SubmitResponse", c.sessionID, map[string]any{
		"instanceId": instanceID,
		"option":     option,
	})
}

// ShowQuestionResults reveals the tallies for a finished question.
func (c *Client) ShowQuestionResults(instanceID string) error {
	return c.conn.InvokeInRoom("ShowQuestionResults", c.sessionID, map[string]any{
		"instanceId": instanceID,
	})
}

// EndSession terminates the session for everyone.
func (c *Client) EndSession() error {
	return c.conn.InvokeInRoom("EndSession", c.sessionID, nil)
}
