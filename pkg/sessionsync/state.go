// Package sessionsync maintains a client-side projection of a live map
// session, built by applying the hub's normalized events in arrival order.
// UI code reads snapshots of the projection; it never mutates it directly.
package sessionsync

import (
	"time"

	"maplive-service/pkg/hubclient"
)

// SessionStatus mirrors the server's session lifecycle.
type SessionStatus string

const (
	StatusWaiting SessionStatus = "WAITING"
	StatusActive  SessionStatus = "ACTIVE"
	StatusEnded   SessionStatus = "ENDED"
)

// ActiveQuestion is the question currently broadcast to participants, or
// absent. Deadline moves only through TimeExtended events that name this
// instance.
type ActiveQuestion struct {
	InstanceID    string
	QuestionID    string
	Text          string
	Options       []string
	Deadline      time.Time
	ResponseCount int
	Results       map[string]int
}

// ViewState is the full projection of one live session. All fields are
// replaced slice-wise by their corresponding events; an event for one slice
// never clobbers another.
type ViewState struct {
	SessionID         string
	Status            SessionStatus
	Roster            map[string]string
	TotalParticipants int
	Viewport          hubclient.MapState
	Segment           hubclient.SegmentState
	MapLocked         bool
	Layers            map[string]bool
	ActiveQuestion    *ActiveQuestion
	Leaderboard       []hubclient.LeaderboardEntry
	Seeded            bool
}

func newViewState(sessionID string) ViewState {
	return ViewState{
		SessionID: sessionID,
		Status:    StatusWaiting,
		Roster:    make(map[string]string),
		Layers:    make(map[string]bool),
	}
}

// clone deep-copies the state so snapshots handed to the UI cannot alias
// the reconciler's maps.
func (s ViewState) clone() ViewState {
	out := s
	out.Roster = make(map[string]string, len(s.Roster))
	for id, name := range s.Roster {
		out.Roster[id] = name
	}
	out.Layers = make(map[string]bool, len(s.Layers))
	for id, visible := range s.Layers {
		out.Layers[id] = visible
	}
	out.Leaderboard = append([]hubclient.LeaderboardEntry(nil), s.Leaderboard...)
	if s.ActiveQuestion != nil {
		q := *s.ActiveQuestion
		q.Options = append([]string(nil), s.ActiveQuestion.Options...)
		if s.ActiveQuestion.Results != nil {
			q.Results = make(map[string]int, len(s.ActiveQuestion.Results))
			for option, count := range s.ActiveQuestion.Results {
				q.Results[option] = count
			}
		}
		out.ActiveQuestion = &q
	}
	return out
}
