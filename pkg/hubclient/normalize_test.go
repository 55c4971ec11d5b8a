package hubclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalEventName(t *testing.T) {
	assert.Equal(t, "FocusChanged", CanonicalEventName("MapStateSync"))
	assert.Equal(t, "QuestionActivated", CanonicalEventName("QuestionBroadcast"))
	assert.Equal(t, "ResponseSubmitted", CanonicalEventName("QuestionResponsesUpdate"))
	assert.Equal(t, "MessageReceived", CanonicalEventName("NewMessage"))
	assert.Equal(t, "Error", CanonicalEventName("error"))

	// Already-canonical names pass through.
	assert.Equal(t, "ParticipantJoined", CanonicalEventName("ParticipantJoined"))
	assert.Equal(t, "SomethingNew", CanonicalEventName("SomethingNew"))
}

func TestNormalizeParticipantJoinedFieldAliases(t *testing.T) {
	// The same participant id arrives under different key shapes depending
	// on which server path produced the event.
	payloads := []map[string]any{
		{"sessionId": "s1", "participantId": "p1", "displayName": "Ana", "totalParticipants": float64(3)},
		{"sessionId": "s1", "ParticipantId": "p1", "DisplayName": "Ana", "TotalParticipants": float64(3)},
		{"sessionId": "s1", "sessionParticipantId": "p1", "displayName": "Ana", "participantCount": float64(3)},
		{"sessionId": "s1", "SessionParticipantId": "p1", "Name": "Ana", "totalParticipants": float64(3)},
	}

	for _, payload := range payloads {
		ev, ok := NormalizeEvent("ParticipantJoined", payload)
		require.True(t, ok)

		joined, ok := ev.(ParticipantJoinedEvent)
		require.True(t, ok)
		assert.Equal(t, "s1", joined.SessionID)
		assert.Equal(t, "p1", joined.ParticipantID)
		assert.Equal(t, "Ana", joined.DisplayName)
		assert.Equal(t, 3, joined.TotalParticipants)
	}
}

func TestNormalizeMapStateSyncBecomesFocusChanged(t *testing.T) {
	ev, ok := NormalizeEvent("MapStateSync", map[string]any{
		"sessionId": "s1",
		"latitude":  10.78,
		"longitude": 106.69,
		"zoomLevel": 13.0,
	})
	require.True(t, ok)

	focus, ok := ev.(FocusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, "FocusChanged", focus.EventName())
	assert.Equal(t, "s1", focus.SessionID)
	assert.InDelta(t, 10.78, focus.Viewport.Latitude, 1e-9)
	assert.InDelta(t, 106.69, focus.Viewport.Longitude, 1e-9)
	assert.InDelta(t, 13.0, focus.Viewport.Zoom, 1e-9)
}

func TestNormalizeFocusChangedNestedViewport(t *testing.T) {
	ev, ok := NormalizeEvent("FocusChanged", map[string]any{
		"sessionId": "s1",
		"mapState": map[string]any{
			"lat":  1.5,
			"lng":  2.5,
			"zoom": 8.0,
		},
	})
	require.True(t, ok)

	focus := ev.(FocusChangedEvent)
	assert.InDelta(t, 1.5, focus.Viewport.Latitude, 1e-9)
	assert.InDelta(t, 2.5, focus.Viewport.Longitude, 1e-9)
	assert.InDelta(t, 8.0, focus.Viewport.Zoom, 1e-9)
}

func TestNormalizeQuestionBroadcastAlias(t *testing.T) {
	ev, ok := NormalizeEvent("QuestionBroadcast", map[string]any{
		"sessionId":  "s1",
		"questionId": "q1",
		"instanceId": "i1",
		"text":       "What is the capital?",
		"options":    []any{"Hanoi", "Hue", "Da Nang"},
		"timeLimit":  float64(30),
	})
	require.True(t, ok)

	q, ok := ev.(QuestionActivatedEvent)
	require.True(t, ok)
	assert.Equal(t, "q1", q.QuestionID)
	assert.Equal(t, "i1", q.InstanceID)
	assert.Equal(t, []string{"Hanoi", "Hue", "Da Nang"}, q.Options)
	assert.Equal(t, 30, q.TimeLimitSec)
}

func TestNormalizeJoinedSessionSnapshot(t *testing.T) {
	ev, ok := NormalizeEvent("JoinedSession", map[string]any{
		"sessionId":         "s1",
		"status":            "ACTIVE",
		"totalParticipants": float64(2),
		"participants": []any{
			map[string]any{"participantId": "p1", "displayName": "Ana"},
			map[string]any{"SessionParticipantId": "p2", "Name": "Ben"},
		},
		"mapState":     map[string]any{"latitude": 1.0, "longitude": 2.0, "zoom": 5.0},
		"segmentState": map[string]any{"index": float64(2), "segmentId": "seg-2", "playing": true},
		"mapLockState": true,
		"leaderboard": []any{
			map[string]any{"participantId": "p1", "score": float64(10), "rank": float64(1)},
		},
	})
	require.True(t, ok)

	joined, ok := ev.(JoinedSessionEvent)
	require.True(t, ok)
	assert.Equal(t, "ACTIVE", joined.Status)
	assert.Equal(t, 2, joined.TotalParticipants)
	require.Len(t, joined.Participants, 2)
	assert.Equal(t, "p1", joined.Participants[0].ParticipantID)
	assert.Equal(t, "p2", joined.Participants[1].ParticipantID)
	require.NotNil(t, joined.MapState)
	assert.InDelta(t, 5.0, joined.MapState.Zoom, 1e-9)
	require.NotNil(t, joined.SegmentState)
	assert.Equal(t, 2, joined.SegmentState.Index)
	assert.True(t, joined.SegmentState.Playing)
	require.NotNil(t, joined.MapLocked)
	assert.True(t, *joined.MapLocked)
	require.Len(t, joined.Leaderboard, 1)
	assert.Equal(t, 10, joined.Leaderboard[0].Score)
}

func TestNormalizeUnknownEventDropped(t *testing.T) {
	ev, ok := NormalizeEvent("TotallyUnknown", map[string]any{"x": 1})
	assert.False(t, ok)
	assert.Nil(t, ev)
}

func TestNormalizeErrorEvent(t *testing.T) {
	ev, ok := NormalizeEvent("error", map[string]any{"message": "not a member"})
	require.True(t, ok)

	errEv, ok := ev.(ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, "not a member", errEv.Message)
}

func TestNormalizeMissingFieldsZeroValues(t *testing.T) {
	ev, ok := NormalizeEvent("ParticipantLeft", map[string]any{})
	require.True(t, ok)

	left := ev.(ParticipantLeftEvent)
	assert.Empty(t, left.SessionID)
	assert.Empty(t, left.ParticipantID)
	assert.Zero(t, left.TotalParticipants)
}
