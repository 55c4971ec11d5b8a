package hub

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session lifecycle states as broadcast to clients.
const (
	SessionWaiting = "WAITING"
	SessionActive  = "ACTIVE"
	SessionEnded   = "ENDED"
)

// mapState is the shared viewport, owned by the presenting teacher.
type mapState struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoomLevel"`
	Bearing   float64 `json:"bearing"`
	Pitch     float64 `json:"pitch"`
}

// segmentState is the story segment playback position.
type segmentState struct {
	Index     int    `json:"index"`
	SegmentID string `json:"segmentId"`
	Playing   bool   `json:"playing"`
}

// activeQuestion is one broadcast instance of a question. Re-broadcasting
// the same question produces a new instance id, which is what stale
// TimeExtended guards key on.
type activeQuestion struct {
	InstanceID  string
	QuestionID  string
	Text        string
	Options     []string
	TimeLimit   int
	ActivatedAt time.Time
	Deadline    time.Time
	Responses   map[string]string // participant id -> chosen option
}

// liveSession is the server-authoritative state of one running session. The
// JoinedSession snapshot answered to late joiners is cut from here, which
// is what keeps a mid-session join from starting at an empty default view.
type liveSession struct {
	mu sync.Mutex

	ID        string
	Status    string
	Roster    map[string]string // participant id -> display name
	MapState  *mapState
	Segment   *segmentState
	MapLocked bool
	Layers    map[string]bool
	Question  *activeQuestion
	Scores    map[string]int
}

func newLiveSession(id string) *liveSession {
	return &liveSession{
		ID:     id,
		Status: SessionWaiting,
		Roster: make(map[string]string),
		Layers: make(map[string]bool),
		Scores: make(map[string]int),
	}
}

// snapshotPayload is the JoinedSession event body.
type snapshotPayload struct {
	SessionID         string             `json:"sessionId"`
	Status            string             `json:"status"`
	Participants      []rosterPayload    `json:"participants"`
	TotalParticipants int                `json:"totalParticipants"`
	MapState          *mapState          `json:"mapState,omitempty"`
	SegmentState      *segmentState      `json:"segmentState,omitempty"`
	MapLockState      bool               `json:"mapLockState"`
	Leaderboard       []leaderboardEntry `json:"leaderboard,omitempty"`
}

type rosterPayload struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

type leaderboardEntry struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Score         int    `json:"score"`
	Rank          int    `json:"rank"`
}

// snapshot cuts the JoinedSession payload under the session lock.
func (s *liveSession) snapshot() snapshotPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshotPayload{
		SessionID:         s.ID,
		Status:            s.Status,
		Participants:      make([]rosterPayload, 0, len(s.Roster)),
		TotalParticipants: len(s.Roster),
		MapState:          s.MapState,
		SegmentState:      s.Segment,
		MapLockState:      s.MapLocked,
		Leaderboard:       s.leaderboardLocked(),
	}
	for id, name := range s.Roster {
		snap.Participants = append(snap.Participants, rosterPayload{ParticipantID: id, DisplayName: name})
	}
	sort.Slice(snap.Participants, func(i, j int) bool {
		return snap.Participants[i].ParticipantID < snap.Participants[j].ParticipantID
	})
	return snap
}

// addParticipant upserts a roster entry and returns the new total.
func (s *liveSession) addParticipant(id, name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Roster[id] = name
	return len(s.Roster)
}

// removeParticipant drops a roster entry and returns the new total.
func (s *liveSession) removeParticipant(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Roster, id)
	return len(s.Roster)
}

// activateQuestion replaces the active question with a fresh instance.
func (s *liveSession) activateQuestion(questionID, text string, options []string, timeLimitSec int) *activeQuestion {
	now := time.Now()
	q := &activeQuestion{
		InstanceID:  uuid.New().String(),
		QuestionID:  questionID,
		Text:        text,
		Options:     options,
		TimeLimit:   timeLimitSec,
		ActivatedAt: now,
		Deadline:    now.Add(time.Duration(timeLimitSec) * time.Second),
		Responses:   make(map[string]string),
	}
	s.mu.Lock()
	s.Question = q
	s.Status = SessionActive
	s.mu.Unlock()
	return q
}

// extendQuestion moves the deadline of the named instance. It returns false
// when the instance already rotated, in which case the extension is stale
// and no event should be broadcast.
func (s *liveSession) extendQuestion(instanceID string, additionalSeconds int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Question == nil || s.Question.InstanceID != instanceID {
		return false
	}
	s.Question.Deadline = s.Question.Deadline.Add(time.Duration(additionalSeconds) * time.Second)
	return true
}

// skipQuestion retires the named instance; false when it already rotated.
func (s *liveSession) skipQuestion(instanceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Question == nil || s.Question.InstanceID != instanceID {
		return false
	}
	s.Question = nil
	return true
}

// recordResponse stores one participant's answer at most once per instance
// and awards speed-weighted points. It returns the response count for the
// instance and whether the response was accepted.
func (s *liveSession) recordResponse(instanceID, participantID, option string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.Question
	if q == nil || q.InstanceID != instanceID {
		return 0, false
	}
	if _, answered := q.Responses[participantID]; answered {
		return len(q.Responses), false
	}
	q.Responses[participantID] = option

	// Base points for answering, plus a point per full second left on the
	// clock. The server is the only place scores are computed.
	points := 10
	if remaining := time.Until(q.Deadline); remaining > 0 {
		points += int(remaining / time.Second)
	}
	s.Scores[participantID] += points
	return len(q.Responses), true
}

// results tallies the per-option counts for the named instance.
func (s *liveSession) results(instanceID string) (map[string]int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.Question
	if q == nil || q.InstanceID != instanceID {
		return nil, false
	}
	counts := make(map[string]int, len(q.Options))
	for _, option := range q.Options {
		counts[option] = 0
	}
	for _, option := range q.Responses {
		counts[option]++
	}
	return counts, true
}

// leaderboard returns the ranked snapshot of all scores.
func (s *liveSession) leaderboard() []leaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaderboardLocked()
}

func (s *liveSession) leaderboardLocked() []leaderboardEntry {
	entries := make([]leaderboardEntry, 0, len(s.Scores))
	for id, score := range s.Scores {
		entries = append(entries, leaderboardEntry{
			ParticipantID: id,
			DisplayName:   s.Roster[id],
			Score:         score,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ParticipantID < entries[j].ParticipantID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// end marks the session terminal and returns the final leaderboard. The
// second return is false when the session already ended.
func (s *liveSession) end() ([]leaderboardEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status == SessionEnded {
		return nil, false
	}
	s.Status = SessionEnded
	s.Question = nil
	return s.leaderboardLocked(), true
}
