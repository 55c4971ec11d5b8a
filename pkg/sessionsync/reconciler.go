package sessionsync

import (
	"log/slog"
	"sync"
	"time"

	"maplive-service/pkg/hubclient"
)

// Reconciler applies the session hub's event stream to a ViewState. Events
// are applied strictly in arrival order; staleness is handled by per-event
// guards (TimeExtended's instance-id match), never by reordering.
type Reconciler struct {
	mu    sync.Mutex
	state ViewState

	// now is swappable for deterministic deadline tests.
	now func() time.Time
}

// NewReconciler builds a reconciler for one session. The zero view state is
// only a placeholder; a JoinedSession snapshot seeds the real one so a late
// joiner never starts from an empty map.
func NewReconciler(sessionID string) *Reconciler {
	return &Reconciler{
		state: newViewState(sessionID),
		now:   time.Now,
	}
}

// Handlers returns the handler map to register on the session hub
// connection: every session event funnels into Apply.
func (r *Reconciler) Handlers() hubclient.HandlerMap {
	apply := func(ev hubclient.Event) { r.Apply(ev) }
	return hubclient.HandlerMap{
		"JoinedSession":     apply,
		"ParticipantJoined": apply,
		"ParticipantLeft":   apply,
		"QuestionActivated": apply,
		"TimeExtended":      apply,
		"QuestionSkipped":   apply,
		"ResponseSubmitted": apply,
		"QuestionResults":   apply,
		"LeaderboardUpdate": apply,
		"FocusChanged":      apply,
		"SegmentSync":       apply,
		"MapLayerSync":      apply,
		"MapLockStateSync":  apply,
		"SessionEnded":      apply,
	}
}

// Snapshot returns a deep copy of the current projection.
func (r *Reconciler) Snapshot() ViewState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// Apply folds one normalized event into the projection. Events referencing
// a different session are dropped (cross-talk guard when several session
// views coexist); events after SessionEnded are dropped (the view is
// frozen).
func (r *Reconciler) Apply(ev hubclient.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id := eventSessionID(ev); id != "" && id != r.state.SessionID {
		slog.Debug("sessionsync: dropping event for another session",
			"event", ev.EventName(), "got", id, "want", r.state.SessionID)
		return
	}
	if r.state.Status == StatusEnded {
		slog.Debug("sessionsync: dropping event after session end", "event", ev.EventName())
		return
	}

	switch e := ev.(type) {
	case hubclient.JoinedSessionEvent:
		r.seed(e)

	case hubclient.ParticipantJoinedEvent:
		r.state.Roster[e.ParticipantID] = e.DisplayName
		// The server count is authoritative: it may include out-of-band
		// participants the delta stream never mentioned.
		r.state.TotalParticipants = e.TotalParticipants

	case hubclient.ParticipantLeftEvent:
		delete(r.state.Roster, e.ParticipantID)
		r.state.TotalParticipants = e.TotalParticipants

	case hubclient.QuestionActivatedEvent:
		r.state.ActiveQuestion = &ActiveQuestion{
			InstanceID: e.InstanceID,
			QuestionID: e.QuestionID,
			Text:       e.Text,
			Options:    append([]string(nil), e.Options...),
			Deadline:   r.now().Add(time.Duration(e.TimeLimitSec) * time.Second),
		}
		if r.state.Status == StatusWaiting {
			r.state.Status = StatusActive
		}

	case hubclient.TimeExtendedEvent:
		q := r.state.ActiveQuestion
		if q == nil || q.InstanceID != e.InstanceID {
			// Stale extension that arrived after the question rotated.
			slog.Debug("sessionsync: dropping stale time extension", "instance", e.InstanceID)
			return
		}
		q.Deadline = q.Deadline.Add(time.Duration(e.AdditionalSeconds) * time.Second)

	case hubclient.QuestionSkippedEvent:
		if q := r.state.ActiveQuestion; q != nil && q.InstanceID == e.InstanceID {
			r.state.ActiveQuestion = nil
		}

	case hubclient.ResponseSubmittedEvent:
		q := r.state.ActiveQuestion
		if q == nil || q.InstanceID != e.InstanceID {
			return
		}
		if e.ResponseCount > 0 {
			q.ResponseCount = e.ResponseCount
		} else {
			q.ResponseCount++
		}

	case hubclient.QuestionResultsEvent:
		if q := r.state.ActiveQuestion; q != nil && q.InstanceID == e.InstanceID {
			q.Results = e.Counts
		}

	case hubclient.LeaderboardUpdateEvent:
		// Wholesale replace: the server snapshot is the leaderboard.
		r.state.Leaderboard = append([]hubclient.LeaderboardEntry(nil), e.Entries...)

	case hubclient.FocusChangedEvent:
		r.state.Viewport = e.Viewport

	case hubclient.SegmentSyncEvent:
		r.state.Segment = e.Segment

	case hubclient.MapLayerSyncEvent:
		r.state.Layers[e.LayerID] = e.Visible

	case hubclient.MapLockStateSyncEvent:
		r.state.MapLocked = e.Locked

	case hubclient.SessionEndedEvent:
		r.state.Status = StatusEnded
		if len(e.FinalLeaderboard) > 0 {
			r.state.Leaderboard = append([]hubclient.LeaderboardEntry(nil), e.FinalLeaderboard...)
		}
		r.state.ActiveQuestion = nil
	}
}

// seed populates the projection from the server's snapshot, delivered right
// after a successful join. Only the slices the snapshot carries are
// touched.
func (r *Reconciler) seed(e hubclient.JoinedSessionEvent) {
	if e.Status != "" {
		r.state.Status = SessionStatus(e.Status)
	}
	r.state.Roster = make(map[string]string, len(e.Participants))
	for _, p := range e.Participants {
		r.state.Roster[p.ParticipantID] = p.DisplayName
	}
	r.state.TotalParticipants = e.TotalParticipants
	if e.MapState != nil {
		r.state.Viewport = *e.MapState
	}
	if e.SegmentState != nil {
		r.state.Segment = *e.SegmentState
	}
	if e.MapLocked != nil {
		r.state.MapLocked = *e.MapLocked
	}
	if len(e.Leaderboard) > 0 {
		r.state.Leaderboard = append([]hubclient.LeaderboardEntry(nil), e.Leaderboard...)
	}
	r.state.Seeded = true
}

// eventSessionID extracts the scoping session id from session-scoped
// events; room-scoped and global events return "".
func eventSessionID(ev hubclient.Event) string {
	switch e := ev.(type) {
	case hubclient.JoinedSessionEvent:
		return e.SessionID
	case hubclient.ParticipantJoinedEvent:
		return e.SessionID
	case hubclient.ParticipantLeftEvent:
		return e.SessionID
	case hubclient.QuestionActivatedEvent:
		return e.SessionID
	case hubclient.TimeExtendedEvent:
		return e.SessionID
	case hubclient.QuestionSkippedEvent:
		return e.SessionID
	case hubclient.ResponseSubmittedEvent:
		return e.SessionID
	case hubclient.QuestionResultsEvent:
		return e.SessionID
	case hubclient.LeaderboardUpdateEvent:
		return e.SessionID
	case hubclient.FocusChangedEvent:
		return e.SessionID
	case hubclient.SegmentSyncEvent:
		return e.SessionID
	case hubclient.MapLayerSyncEvent:
		return e.SessionID
	case hubclient.MapLockStateSyncEvent:
		return e.SessionID
	case hubclient.SessionEndedEvent:
		return e.SessionID
	}
	return ""
}
