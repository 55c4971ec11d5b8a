package sessionsync

import (
	"testing"
	"time"

	"maplive-service/pkg/hubclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcilerSeedsFromJoinSnapshot(t *testing.T) {
	rec := NewReconciler("s1")

	locked := true
	rec.Apply(hubclient.JoinedSessionEvent{
		SessionID:         "s1",
		Status:            "ACTIVE",
		TotalParticipants: 2,
		Participants: []hubclient.RosterEntry{
			{ParticipantID: "p1", DisplayName: "Ana"},
			{ParticipantID: "p2", DisplayName: "Ben"},
		},
		MapState:     &hubclient.MapState{Latitude: 10.78, Longitude: 106.69, Zoom: 13},
		SegmentState: &hubclient.SegmentState{Index: 2, SegmentID: "seg-2", Playing: true},
		MapLocked:    &locked,
		Leaderboard: []hubclient.LeaderboardEntry{
			{ParticipantID: "p1", Score: 10, Rank: 1},
		},
	})

	state := rec.Snapshot()
	assert.True(t, state.Seeded)
	assert.Equal(t, StatusActive, state.Status)
	assert.Equal(t, 2, state.TotalParticipants)
	assert.Equal(t, "Ana", state.Roster["p1"])
	assert.Equal(t, "Ben", state.Roster["p2"])
	assert.InDelta(t, 13.0, state.Viewport.Zoom, 1e-9)
	assert.Equal(t, "seg-2", state.Segment.SegmentID)
	assert.True(t, state.MapLocked)
	require.Len(t, state.Leaderboard, 1)
}

func TestReconcilerRosterFollowsServerCount(t *testing.T) {
	rec := NewReconciler("s1")

	rec.Apply(hubclient.ParticipantJoinedEvent{
		SessionID: "s1", ParticipantID: "p1", DisplayName: "Ana", TotalParticipants: 5,
	})

	state := rec.Snapshot()
	assert.Equal(t, "Ana", state.Roster["p1"])
	// Count comes from the server, not from len(roster): the hub may have
	// participants this client never saw a join event for.
	assert.Equal(t, 5, state.TotalParticipants)

	rec.Apply(hubclient.ParticipantLeftEvent{
		SessionID: "s1", ParticipantID: "p1", TotalParticipants: 4,
	})

	state = rec.Snapshot()
	assert.NotContains(t, state.Roster, "p1")
	assert.Equal(t, 4, state.TotalParticipants)
}

func TestReconcilerDropsCrossSessionEvents(t *testing.T) {
	rec := NewReconciler("s1")

	rec.Apply(hubclient.ParticipantJoinedEvent{
		SessionID: "other", ParticipantID: "px", TotalParticipants: 9,
	})

	state := rec.Snapshot()
	assert.Empty(t, state.Roster)
	assert.Zero(t, state.TotalParticipants)
}

func TestReconcilerQuestionLifecycle(t *testing.T) {
	rec := NewReconciler("s1")
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return base }

	rec.Apply(hubclient.QuestionActivatedEvent{
		SessionID: "s1", QuestionID: "q1", InstanceID: "i1",
		Text: "Where is Vietnam?", Options: []string{"Asia", "Europe"}, TimeLimitSec: 30,
	})

	state := rec.Snapshot()
	require.NotNil(t, state.ActiveQuestion)
	assert.Equal(t, "i1", state.ActiveQuestion.InstanceID)
	assert.Equal(t, base.Add(30*time.Second), state.ActiveQuestion.Deadline)
	assert.Equal(t, StatusActive, state.Status)

	t.Run("ExtensionForCurrentInstance", func(t *testing.T) {
		rec.Apply(hubclient.TimeExtendedEvent{SessionID: "s1", InstanceID: "i1", AdditionalSeconds: 15})
		state := rec.Snapshot()
		assert.Equal(t, base.Add(45*time.Second), state.ActiveQuestion.Deadline)
	})

	t.Run("StaleExtensionDropped", func(t *testing.T) {
		// A second question replaces the first; the late extension for the
		// old instance must not touch the new deadline.
		rec.Apply(hubclient.QuestionActivatedEvent{
			SessionID: "s1", QuestionID: "q2", InstanceID: "i2", TimeLimitSec: 20,
		})
		rec.Apply(hubclient.TimeExtendedEvent{SessionID: "s1", InstanceID: "i1", AdditionalSeconds: 99})

		state := rec.Snapshot()
		assert.Equal(t, "i2", state.ActiveQuestion.InstanceID)
		assert.Equal(t, base.Add(20*time.Second), state.ActiveQuestion.Deadline)
	})

	t.Run("ResponsesCounted", func(t *testing.T) {
		rec.Apply(hubclient.ResponseSubmittedEvent{SessionID: "s1", InstanceID: "i2", ResponseCount: 3})
		assert.Equal(t, 3, rec.Snapshot().ActiveQuestion.ResponseCount)
	})

	t.Run("ResultsAttached", func(t *testing.T) {
		rec.Apply(hubclient.QuestionResultsEvent{
			SessionID: "s1", InstanceID: "i2", Counts: map[string]int{"Asia": 3},
		})
		assert.Equal(t, 3, rec.Snapshot().ActiveQuestion.Results["Asia"])
	})

	t.Run("SkipClearsQuestion", func(t *testing.T) {
		rec.Apply(hubclient.QuestionSkippedEvent{SessionID: "s1", InstanceID: "i2"})
		assert.Nil(t, rec.Snapshot().ActiveQuestion)
	})
}

func TestReconcilerLeaderboardWholesaleReplace(t *testing.T) {
	rec := NewReconciler("s1")

	rec.Apply(hubclient.LeaderboardUpdateEvent{
		SessionID: "s1",
		Entries: []hubclient.LeaderboardEntry{
			{ParticipantID: "p1", Score: 10, Rank: 1},
			{ParticipantID: "p2", Score: 5, Rank: 2},
		},
	})
	rec.Apply(hubclient.LeaderboardUpdateEvent{
		SessionID: "s1",
		Entries: []hubclient.LeaderboardEntry{
			{ParticipantID: "p2", Score: 25, Rank: 1},
		},
	})

	state := rec.Snapshot()
	require.Len(t, state.Leaderboard, 1)
	assert.Equal(t, "p2", state.Leaderboard[0].ParticipantID)
	assert.Equal(t, 25, state.Leaderboard[0].Score)
}

func TestReconcilerMapSyncEvents(t *testing.T) {
	rec := NewReconciler("s1")

	rec.Apply(hubclient.FocusChangedEvent{
		SessionID: "s1",
		Viewport:  hubclient.MapState{Latitude: 10.78, Longitude: 106.69, Zoom: 13},
	})
	rec.Apply(hubclient.SegmentSyncEvent{
		SessionID: "s1",
		Segment:   hubclient.SegmentState{Index: 3, SegmentID: "seg-3", Playing: true},
	})
	rec.Apply(hubclient.MapLayerSyncEvent{SessionID: "s1", LayerID: "traffic", Visible: true})
	rec.Apply(hubclient.MapLayerSyncEvent{SessionID: "s1", LayerID: "terrain", Visible: false})
	rec.Apply(hubclient.MapLockStateSyncEvent{SessionID: "s1", Locked: true})

	state := rec.Snapshot()
	assert.InDelta(t, 106.69, state.Viewport.Longitude, 1e-9)
	assert.Equal(t, 3, state.Segment.Index)
	assert.True(t, state.Layers["traffic"])
	assert.False(t, state.Layers["terrain"])
	assert.True(t, state.MapLocked)
}

func TestReconcilerFreezesAfterSessionEnd(t *testing.T) {
	rec := NewReconciler("s1")

	rec.Apply(hubclient.ParticipantJoinedEvent{SessionID: "s1", ParticipantID: "p1", TotalParticipants: 1})
	rec.Apply(hubclient.SessionEndedEvent{
		SessionID: "s1",
		FinalLeaderboard: []hubclient.LeaderboardEntry{
			{ParticipantID: "p1", Score: 40, Rank: 1},
		},
	})

	state := rec.Snapshot()
	assert.Equal(t, StatusEnded, state.Status)
	assert.Nil(t, state.ActiveQuestion)
	require.Len(t, state.Leaderboard, 1)

	// Anything arriving after the end is ignored.
	rec.Apply(hubclient.ParticipantJoinedEvent{SessionID: "s1", ParticipantID: "p2", TotalParticipants: 2})
	rec.Apply(hubclient.LeaderboardUpdateEvent{SessionID: "s1"})

	state = rec.Snapshot()
	assert.Equal(t, 1, state.TotalParticipants)
	require.Len(t, state.Leaderboard, 1)
	assert.Equal(t, 40, state.Leaderboard[0].Score)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	rec := NewReconciler("s1")
	rec.Apply(hubclient.ParticipantJoinedEvent{SessionID: "s1", ParticipantID: "p1", DisplayName: "Ana", TotalParticipants: 1})

	state := rec.Snapshot()
	state.Roster["p1"] = "mutated"
	state.Layers["x"] = true

	fresh := rec.Snapshot()
	assert.Equal(t, "Ana", fresh.Roster["p1"])
	assert.NotContains(t, fresh.Layers, "x")
}
