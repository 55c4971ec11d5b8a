package sessionsync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"maplive-service/pkg/hubclient"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresBaseURL(t *testing.T) {
	client, ok := NewClient("", "s1", hubclient.Options{})
	assert.False(t, ok)
	assert.Nil(t, client)
}

func TestNewClientAllowsGuests(t *testing.T) {
	client, ok := NewClient("http://example.com", "s1", hubclient.Options{})
	require.True(t, ok)
	require.NotNil(t, client)

	state := client.State()
	assert.Equal(t, "s1", state.SessionID)
	assert.Equal(t, StatusWaiting, state.Status)
	assert.False(t, state.Seeded)
}

func TestCloseBeforeConnectIsSafe(t *testing.T) {
	client, ok := NewClient("http://example.com", "s1", hubclient.Options{})
	require.True(t, ok)

	// Tear down a never-connected view without a transport in place.
	client.Close()
	assert.Equal(t, hubclient.StateDisconnected, client.Connection().State())
}

func TestCloseCompletesWhileServerClosing(t *testing.T) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	joined := make(chan struct{})
	var joinedOnce sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Read the join, then drop the transport so the teardown's leave
		// races a connection the server is already closing.
		var frame map[string]any
		_ = conn.ReadJSON(&frame)
		joinedOnce.Do(func() { close(joined) })
		conn.Close()
	}))
	t.Cleanup(server.Close)

	client, ok := NewClient(server.URL, "s1", hubclient.Options{})
	require.True(t, ok)
	require.NoError(t, client.Connect(context.Background()))

	select {
	case <-joined:
	case <-time.After(2 * time.Second):
		t.Fatal("join never reached the server")
	}

	// The leave may fail against the dying transport; Close must still run
	// to completion and leave the connection disconnected.
	client.Close()
	assert.Equal(t, hubclient.StateDisconnected, client.Connection().State())
}
