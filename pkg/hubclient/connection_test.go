package hubclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// fakeHub is an in-process hub endpoint that records inbound frames and
// lets tests push event frames back down.
type fakeHub struct {
	mu     sync.Mutex
	conns  []*websocket.Conn
	frames chan Frame
}

func newFakeHub() *fakeHub {
	return &fakeHub{frames: make(chan Frame, 64)}
}

func (f *fakeHub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns = append(f.conns, conn)
		f.mu.Unlock()

		for {
			var frame Frame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			f.frames <- frame
		}
	}
}

func (f *fakeHub) push(t *testing.T, frame Frame) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.conns)
	require.NoError(t, f.conns[len(f.conns)-1].WriteJSON(frame))
}

func (f *fakeHub) nextFrame(t *testing.T) Frame {
	t.Helper()
	select {
	case frame := <-f.frames:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func (f *fakeHub) expectNoFrame(t *testing.T) {
	t.Helper()
	select {
	case frame := <-f.frames:
		t.Fatalf("unexpected frame %q", frame.Type)
	case <-time.After(150 * time.Millisecond):
	}
}

func startTestConnection(t *testing.T, profile HubProfile, opts Options) (*Connection, *fakeHub) {
	t.Helper()
	hub := newFakeHub()
	server := httptest.NewServer(hub.handler())
	t.Cleanup(server.Close)

	conn, ok := NewConnection(server.URL, profile, opts)
	require.True(t, ok)
	require.NoError(t, conn.Start(context.Background()))
	t.Cleanup(conn.Stop)
	return conn, hub
}

func TestNewConnectionGuestGate(t *testing.T) {
	t.Run("SessionHubAllowsGuests", func(t *testing.T) {
		conn, ok := NewConnection("http://example.com", SessionHub, Options{})
		assert.True(t, ok)
		assert.NotNil(t, conn)
	})

	t.Run("GroupHubRejectsGuests", func(t *testing.T) {
		conn, ok := NewConnection("http://example.com", GroupCollaborationHub, Options{})
		assert.False(t, ok)
		assert.Nil(t, conn)
	})

	t.Run("GroupHubRejectsExpiredCredential", func(t *testing.T) {
		expired := signedToken(t, map[string]any{"exp": time.Now().Add(-time.Hour).Unix()})
		_, ok := NewConnection("http://example.com", GroupCollaborationHub, Options{
			CredentialSupplier: func() string { return expired },
		})
		assert.False(t, ok)
	})

	t.Run("GroupHubAcceptsValidCredential", func(t *testing.T) {
		token := signedToken(t, map[string]any{"exp": time.Now().Add(time.Hour).Unix()})
		_, ok := NewConnection("http://example.com", GroupCollaborationHub, Options{
			CredentialSupplier: func() string { return token },
		})
		assert.True(t, ok)
	})

	t.Run("EmptyBaseURL", func(t *testing.T) {
		_, ok := NewConnection("", SessionHub, Options{})
		assert.False(t, ok)
	})
}

func TestHubEndpointSchemeRewrite(t *testing.T) {
	assert.Equal(t, "ws://api.local/hubs/session", hubEndpoint("http://api.local", "/hubs/session"))
	assert.Equal(t, "wss://api.local/hubs/session", hubEndpoint("https://api.local/", "/hubs/session"))
	assert.Equal(t, "ws://api.local/hubs/notifications", hubEndpoint("ws://api.local", "/hubs/notifications"))
}

func TestStartIsIdempotentWhenConnected(t *testing.T) {
	conn, _ := startTestConnection(t, SessionHub, Options{})
	require.Equal(t, StateConnected, conn.State())

	// A second start against a live connection is a successful no-op.
	require.NoError(t, conn.Start(context.Background()))
	assert.Equal(t, StateConnected, conn.State())
}

func TestStopIsIdempotent(t *testing.T) {
	var closes int
	conn, _ := startTestConnection(t, SessionHub, Options{
		OnClose: func(err error) { closes++ },
	})

	conn.Stop()
	assert.Equal(t, StateDisconnected, conn.State())
	assert.Equal(t, 1, closes)

	conn.Stop()
	assert.Equal(t, 1, closes)
}

func TestStopWithoutStart(t *testing.T) {
	conn, ok := NewConnection("http://example.com", SessionHub, Options{})
	require.True(t, ok)
	conn.Stop()
	assert.Equal(t, StateDisconnected, conn.State())
}

func TestStartDialFailure(t *testing.T) {
	conn, ok := NewConnection("http://127.0.0.1:1", SessionHub, Options{})
	require.True(t, ok)

	err := conn.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, conn.State())
}

func TestJoinRoomSendsJoinCommand(t *testing.T) {
	conn, hub := startTestConnection(t, SessionHub, Options{})

	require.NoError(t, conn.JoinRoom("s1"))
	frame := hub.nextFrame(t)
	assert.Equal(t, "JoinSession", frame.Type)
	assert.Equal(t, "s1", frame.Data["sessionId"])
	assert.True(t, conn.InRoom("s1"))
}

func TestJoinRoomIsIdempotent(t *testing.T) {
	conn, hub := startTestConnection(t, SessionHub, Options{})

	require.NoError(t, conn.JoinRoom("s1"))
	hub.nextFrame(t)

	require.NoError(t, conn.JoinRoom("s1"))
	hub.expectNoFrame(t)
}

func TestJoinRoomValidation(t *testing.T) {
	conn, _ := startTestConnection(t, SessionHub, Options{})
	assert.ErrorIs(t, conn.JoinRoom(""), ErrMissingRoomID)
}

func TestJoinRoomWhileDisconnectedIsNoOp(t *testing.T) {
	conn, ok := NewConnection("http://example.com", SessionHub, Options{})
	require.True(t, ok)

	// Joining before the transport exists must not surface an error; the
	// owner re-joins once connected.
	assert.NoError(t, conn.JoinRoom("s1"))
	assert.False(t, conn.InRoom("s1"))
}

func TestLeaveRoomUnjoinedIsNoOp(t *testing.T) {
	conn, hub := startTestConnection(t, SessionHub, Options{})
	assert.NoError(t, conn.LeaveRoom("never-joined"))
	hub.expectNoFrame(t)
}

func TestLeaveRoomSendsLeaveCommand(t *testing.T) {
	conn, hub := startTestConnection(t, SessionHub, Options{})

	require.NoError(t, conn.JoinRoom("s1"))
	hub.nextFrame(t)

	require.NoError(t, conn.LeaveRoom("s1"))
	frame := hub.nextFrame(t)
	assert.Equal(t, "LeaveSession", frame.Type)
	assert.False(t, conn.InRoom("s1"))
}

func TestNotificationHubJoinIsImplicit(t *testing.T) {
	token := signedToken(t, map[string]any{"exp": time.Now().Add(time.Hour).Unix()})
	conn, hub := startTestConnection(t, NotificationHub, Options{
		CredentialSupplier: func() string { return token },
	})

	// Push-only hub: membership comes from connecting, no frame goes out.
	require.NoError(t, conn.JoinRoom("anything"))
	hub.expectNoFrame(t)
	_ = conn
}

func TestInvokeRequiresConnection(t *testing.T) {
	conn, ok := NewConnection("http://example.com", SessionHub, Options{})
	require.True(t, ok)
	assert.ErrorIs(t, conn.Invoke("SyncMapState", nil), ErrNotConnected)
}

func TestInvokeInRoom(t *testing.T) {
	conn, hub := startTestConnection(t, SessionHub, Options{})

	require.NoError(t, conn.InvokeInRoom("SyncMapState", "s1", map[string]any{
		"latitude":  10.78,
		"longitude": 106.69,
		"zoomLevel": 13,
	}))

	frame := hub.nextFrame(t)
	assert.Equal(t, "SyncMapState", frame.Type)
	assert.Equal(t, "s1", frame.Data["sessionId"])
	assert.NotEmpty(t, frame.ID)
	assert.NotZero(t, frame.Timestamp)
}

func TestInvokeInRoomValidation(t *testing.T) {
	conn, _ := startTestConnection(t, SessionHub, Options{})
	assert.ErrorIs(t, conn.InvokeInRoom("SyncMapState", "", nil), ErrMissingRoomID)
}

func TestDispatchTypedEvent(t *testing.T) {
	conn, hub := startTestConnection(t, SessionHub, Options{})

	events := make(chan Event, 1)
	conn.RegisterHandlers(HandlerMap{
		// Raw server name; registration canonicalizes it.
		"MapStateSync": func(ev Event) { events <- ev },
	})

	hub.push(t, Frame{Type: "MapStateSync", Data: map[string]any{
		"sessionId": "s1",
		"latitude":  10.78,
		"longitude": 106.69,
		"zoomLevel": 13.0,
	}})

	select {
	case ev := <-events:
		focus, ok := ev.(FocusChangedEvent)
		require.True(t, ok)
		assert.InDelta(t, 13.0, focus.Viewport.Zoom, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestUnregisterHandlers(t *testing.T) {
	conn, hub := startTestConnection(t, SessionHub, Options{})

	events := make(chan Event, 1)
	conn.RegisterHandlers(HandlerMap{
		"SessionEnded": func(ev Event) { events <- ev },
	})
	conn.UnregisterHandlers()

	hub.push(t, Frame{Type: "SessionEnded", Data: map[string]any{"sessionId": "s1"}})

	select {
	case <-events:
		t.Fatal("handler fired after unregister")
	case <-time.After(150 * time.Millisecond):
	}

	// Unregistering twice is harmless.
	conn.UnregisterHandlers()
}

func TestReconnectAfterTransportLoss(t *testing.T) {
	hub := newFakeHub()
	server := httptest.NewServer(hub.handler())
	t.Cleanup(server.Close)

	reconnecting := make(chan struct{}, 1)
	reconnected := make(chan struct{}, 1)
	conn, ok := NewConnection(server.URL, SessionHub, Options{
		OnReconnecting: func(err error) { reconnecting <- struct{}{} },
		OnReconnected:  func() { reconnected <- struct{}{} },
	})
	require.True(t, ok)
	require.NoError(t, conn.Start(context.Background()))
	t.Cleanup(conn.Stop)

	// Kill the server side of the transport.
	hub.mu.Lock()
	require.NotEmpty(t, hub.conns)
	hub.conns[0].Close()
	hub.mu.Unlock()

	select {
	case <-reconnecting:
	case <-time.After(2 * time.Second):
		t.Fatal("OnReconnecting never fired")
	}

	// First retry is immediate, so this resolves fast.
	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("OnReconnected never fired")
	}
	assert.Equal(t, StateConnected, conn.State())
}

func TestStopDuringReconnectAbortsLoop(t *testing.T) {
	hub := newFakeHub()
	server := httptest.NewServer(hub.handler())

	conn, ok := NewConnection(server.URL, SessionHub, Options{})
	require.True(t, ok)
	require.NoError(t, conn.Start(context.Background()))

	// Tear the server down entirely so reconnect attempts keep failing.
	server.CloseClientConnections()
	server.Close()

	require.Eventually(t, func() bool {
		return conn.State() == StateReconnecting
	}, 2*time.Second, 10*time.Millisecond)

	conn.Stop()
	assert.Equal(t, StateDisconnected, conn.State())
}

func TestTeardownAfterTransportLoss(t *testing.T) {
	hub := newFakeHub()
	server := httptest.NewServer(hub.handler())

	var closes int
	conn, ok := NewConnection(server.URL, SessionHub, Options{
		OnClose: func(err error) { closes++ },
	})
	require.True(t, ok)
	require.NoError(t, conn.Start(context.Background()))

	require.NoError(t, conn.JoinRoom("s1"))
	hub.nextFrame(t)

	// Kill the transport under the client mid-session, with no server left
	// to reconnect to.
	server.CloseClientConnections()
	server.Close()

	require.Eventually(t, func() bool {
		return conn.State() == StateReconnecting
	}, 2*time.Second, 10*time.Millisecond)

	// Leaving against the dead transport stays silent and must not keep
	// the owner from finishing the teardown.
	assert.NoError(t, conn.LeaveRoom("s1"))
	assert.False(t, conn.InRoom("s1"))

	conn.Stop()
	assert.Equal(t, StateDisconnected, conn.State())
	assert.Equal(t, 1, closes)
}

func TestIsBenignClosure(t *testing.T) {
	assert.True(t, IsBenignClosure(ErrNotConnected))
	assert.True(t, IsBenignClosure(websocket.ErrCloseSent))
	assert.True(t, IsBenignClosure(&websocket.CloseError{Code: websocket.CloseNormalClosure}))
	assert.True(t, IsBenignClosure(&websocket.CloseError{Code: websocket.CloseGoingAway}))
	assert.False(t, IsBenignClosure(&websocket.CloseError{Code: websocket.CloseAbnormalClosure}))
	assert.False(t, IsBenignClosure(assert.AnError))
	assert.False(t, IsBenignClosure(nil))
}
