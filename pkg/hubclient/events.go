package hubclient

import (
	"time"
)

// Event is a server-pushed payload after field-name normalization. The
// server has emitted both PascalCase and camelCase keys across revisions,
// and occasionally renamed a field outright (participantId vs
// sessionParticipantId); everything downstream of the dispatcher sees only
// the canonical shapes defined here.
type Event interface {
	// EventName returns the canonical event name the handler map is keyed by.
	EventName() string
}

// MapState is a map viewport: center, zoom and camera orientation.
type MapState struct {
	Latitude  float64
	Longitude float64
	Zoom      float64
	Bearing   float64
	Pitch     float64
}

// SegmentState identifies the story segment a session is currently on.
type SegmentState struct {
	Index     int
	SegmentID string
	Playing   bool
}

// LeaderboardEntry is one row of a server-computed leaderboard snapshot.
type LeaderboardEntry struct {
	ParticipantID string
	DisplayName   string
	Score         int
	Rank          int
}

// RosterEntry is one participant as carried by a JoinedSession snapshot.
type RosterEntry struct {
	ParticipantID string
	DisplayName   string
}

// JoinedSessionEvent seeds a late joiner with the server's current view of
// the session. It is delivered once, immediately after a successful room
// join, before any other session event.
type JoinedSessionEvent struct {
	SessionID         string
	Status            string
	Participants      []RosterEntry
	TotalParticipants int
	MapState          *MapState
	SegmentState      *SegmentState
	MapLocked         *bool
	Leaderboard       []LeaderboardEntry
}

func (JoinedSessionEvent) EventName() string { return "JoinedSession" }

// ParticipantJoinedEvent announces a roster addition. TotalParticipants is
// the server's count and is authoritative; it may include participants the
// roster delta stream never mentioned.
type ParticipantJoinedEvent struct {
	SessionID         string
	ParticipantID     string
	DisplayName       string
	TotalParticipants int
}

func (ParticipantJoinedEvent) EventName() string { return "ParticipantJoined" }

// ParticipantLeftEvent announces a roster removal.
type ParticipantLeftEvent struct {
	SessionID         string
	ParticipantID     string
	TotalParticipants int
}

func (ParticipantLeftEvent) EventName() string { return "ParticipantLeft" }

// QuestionActivatedEvent replaces the active question wholesale. InstanceID
// identifies this particular broadcast of the question; a re-broadcast of
// the same question gets a fresh instance id.
type QuestionActivatedEvent struct {
	SessionID    string
	QuestionID   string
	InstanceID   string
	Text         string
	Options      []string
	TimeLimitSec int
}

func (QuestionActivatedEvent) EventName() string { return "QuestionActivated" }

// TimeExtendedEvent stretches the deadline of a specific question instance.
type TimeExtendedEvent struct {
	SessionID         string
	InstanceID        string
	AdditionalSeconds int
}

func (TimeExtendedEvent) EventName() string { return "TimeExtended" }

// QuestionSkippedEvent retires the active question without results.
type QuestionSkippedEvent struct {
	SessionID  string
	InstanceID string
}

func (QuestionSkippedEvent) EventName() string { return "QuestionSkipped" }

// ResponseSubmittedEvent bumps the response counter for the active question.
// It deliberately carries no answer content; answers are withheld until
// results are broadcast.
type ResponseSubmittedEvent struct {
	SessionID     string
	InstanceID    string
	ParticipantID string
	ResponseCount int
}

func (ResponseSubmittedEvent) EventName() string { return "ResponseSubmitted" }

// QuestionResultsEvent reveals the per-option tallies for a finished
// question instance.
type QuestionResultsEvent struct {
	SessionID  string
	InstanceID string
	Counts     map[string]int
}

func (QuestionResultsEvent) EventName() string { return "QuestionResults" }

// LeaderboardUpdateEvent carries a complete leaderboard snapshot. The server
// is authoritative; clients replace, never merge.
type LeaderboardUpdateEvent struct {
	SessionID string
	Entries   []LeaderboardEntry
}

func (LeaderboardUpdateEvent) EventName() string { return "LeaderboardUpdate" }

// FocusChangedEvent is the client-side reshaping of the server's
// MapStateSync event: the teacher moved the shared viewport, and following
// clients should recenter there.
type FocusChangedEvent struct {
	SessionID string
	Viewport  MapState
}

func (FocusChangedEvent) EventName() string { return "FocusChanged" }

// SegmentSyncEvent replaces the session's segment slice.
type SegmentSyncEvent struct {
	SessionID string
	Segment   SegmentState
}

func (SegmentSyncEvent) EventName() string { return "SegmentSync" }

// MapLayerSyncEvent toggles visibility of one map layer.
type MapLayerSyncEvent struct {
	SessionID string
	LayerID   string
	Visible   bool
}

func (MapLayerSyncEvent) EventName() string { return "MapLayerSync" }

// MapLockStateSyncEvent replaces the map-lock flag.
type MapLockStateSyncEvent struct {
	SessionID string
	Locked    bool
}

func (MapLockStateSyncEvent) EventName() string { return "MapLockStateSync" }

// SessionEndedEvent is terminal: the view freezes and shows the final
// leaderboard.
type SessionEndedEvent struct {
	SessionID        string
	FinalLeaderboard []LeaderboardEntry
}

func (SessionEndedEvent) EventName() string { return "SessionEnded" }

// GroupCreatedEvent announces a new collaboration group.
type GroupCreatedEvent struct {
	GroupID   string
	Name      string
	CreatedBy string
}

func (GroupCreatedEvent) EventName() string { return "GroupCreated" }

// WorkSubmittedEvent announces a group member's submission to the rest of
// the group.
type WorkSubmittedEvent struct {
	GroupID       string
	SubmissionID  string
	ParticipantID string
	Title         string
}

func (WorkSubmittedEvent) EventName() string { return "WorkSubmitted" }

// SubmissionConfirmedEvent is the submitter's own acknowledgement, carrying
// the storage URL of any attached drawing snapshot.
type SubmissionConfirmedEvent struct {
	GroupID      string
	SubmissionID string
	SnapshotURL  string
}

func (SubmissionConfirmedEvent) EventName() string { return "SubmissionConfirmed" }

// SubmissionGradedEvent carries a grade back to the group.
type SubmissionGradedEvent struct {
	GroupID      string
	SubmissionID string
	Score        int
	Feedback     string
}

func (SubmissionGradedEvent) EventName() string { return "SubmissionGraded" }

// DrawingReceivedEvent relays a freehand drawing stroke to the group.
type DrawingReceivedEvent struct {
	GroupID       string
	ParticipantID string
	Stroke        map[string]any
}

func (DrawingReceivedEvent) EventName() string { return "DrawingReceived" }

// CursorMovedEvent relays a collaborator's cursor position.
type CursorMovedEvent struct {
	GroupID       string
	ParticipantID string
	Latitude      float64
	Longitude     float64
}

func (CursorMovedEvent) EventName() string { return "CursorMoved" }

// MessageReceivedEvent is a chat message in a group or ticket room. The
// server has emitted this both as MessageReceived and NewMessage; both map
// here.
type MessageReceivedEvent struct {
	RoomID   string
	SenderID string
	Sender   string
	Text     string
	SentAt   time.Time
}

func (MessageReceivedEvent) EventName() string { return "MessageReceived" }

// MemberTypingEvent is a transient typing indicator.
type MemberTypingEvent struct {
	RoomID        string
	ParticipantID string
}

func (MemberTypingEvent) EventName() string { return "MemberTyping" }

// TicketCreatedEvent announces a new support ticket.
type TicketCreatedEvent struct {
	TicketID string
	Subject  string
	Status   string
}

func (TicketCreatedEvent) EventName() string { return "TicketCreated" }

// TicketUpdatedEvent announces edits to a ticket's fields.
type TicketUpdatedEvent struct {
	TicketID string
	Subject  string
	Status   string
}

func (TicketUpdatedEvent) EventName() string { return "TicketUpdated" }

// TicketReplyEvent is a reply posted to a ticket thread.
type TicketReplyEvent struct {
	TicketID string
	ReplyID  string
	Author   string
	Text     string
}

func (TicketReplyEvent) EventName() string { return "TicketReply" }

// TicketStatusChangedEvent announces a status transition.
type TicketStatusChangedEvent struct {
	TicketID string
	Status   string
}

func (TicketStatusChangedEvent) EventName() string { return "TicketStatusChanged" }

// TicketClosedEvent is the terminal event for a ticket room.
type TicketClosedEvent struct {
	TicketID string
}

func (TicketClosedEvent) EventName() string { return "TicketClosed" }

// AdminNotificationEvent is a server-pushed notice on the admin hub.
type AdminNotificationEvent struct {
	Level   string
	Title   string
	Message string
}

func (AdminNotificationEvent) EventName() string { return "AdminNotification" }

// ErrorEvent is a server-reported command failure.
type ErrorEvent struct {
	Code    string
	Message string
}

func (ErrorEvent) EventName() string { return "Error" }
