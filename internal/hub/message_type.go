package hub

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CommandType identifies a client-to-server hub command.
type CommandType string

const (
	// Session hub
	CommandJoinSession       CommandType = "JoinSession"
	CommandLeaveSession      CommandType = "LeaveSession"
	CommandSyncMapState      CommandType = "SyncMapState"
	CommandSyncSegment       CommandType = "SyncSegment"
	CommandSyncMapLockState  CommandType = "SyncMapLockState"
	CommandSyncMapLayer      CommandType = "SyncMapLayer"
	CommandBroadcastQuestion CommandType = "BroadcastQuestionToStudents"
	CommandExtendTime        CommandType = "ExtendQuestionTime"
	CommandSkipQuestion      CommandType = "SkipQuestion"
	CommandSubmitResponse    CommandType = "SubmitResponse"
	CommandShowResults       CommandType = "ShowQuestionResults"
	CommandEndSession        CommandType = "EndSession"

	// Group collaboration hub
	CommandJoinGroup          CommandType = "JoinGroup"
	CommandLeaveGroup         CommandType = "LeaveGroup"
	CommandCreateGroup        CommandType = "CreateGroup"
	CommandSubmitGroupWork    CommandType = "SubmitGroupWork"
	CommandGradeSubmission    CommandType = "GradeSubmission"
	CommandSendDrawing        CommandType = "SendDrawing"
	CommandSendCursorPosition CommandType = "SendCursorPosition"
	CommandSendMessage        CommandType = "SendMessage"
	CommandNotifyTyping       CommandType = "NotifyTyping"

	// Support ticket hub
	CommandJoinTicketRoom  CommandType = "JoinTicketRoom"
	CommandLeaveTicketRoom CommandType = "LeaveTicketRoom"
)

// EventType identifies a server-to-client pushed event.
type EventType string

const (
	EventJoinedSession     EventType = "JoinedSession"
	EventParticipantJoined EventType = "ParticipantJoined"
	EventParticipantLeft   EventType = "ParticipantLeft"
	EventQuestionActivated EventType = "QuestionActivated"
	EventTimeExtended      EventType = "TimeExtended"
	EventQuestionSkipped   EventType = "QuestionSkipped"
	EventResponseSubmitted EventType = "ResponseSubmitted"
	EventQuestionResults   EventType = "QuestionResults"
	EventLeaderboardUpdate EventType = "LeaderboardUpdate"
	EventMapStateSync      EventType = "MapStateSync"
	EventSegmentSync       EventType = "SegmentSync"
	EventMapLayerSync      EventType = "MapLayerSync"
	EventMapLockStateSync  EventType = "MapLockStateSync"
	EventSessionEnded      EventType = "SessionEnded"

	EventGroupCreated        EventType = "GroupCreated"
	EventWorkSubmitted       EventType = "WorkSubmitted"
	EventSubmissionConfirmed EventType = "SubmissionConfirmed"
	EventSubmissionGraded    EventType = "SubmissionGraded"
	EventDrawingReceived     EventType = "DrawingReceived"
	EventCursorMoved         EventType = "CursorMoved"
	EventMessageReceived     EventType = "MessageReceived"
	EventMemberTyping        EventType = "MemberTyping"

	EventTicketCreated       EventType = "TicketCreated"
	EventTicketUpdated       EventType = "TicketUpdated"
	EventTicketReply         EventType = "TicketReply"
	EventTicketStatusChanged EventType = "TicketStatusChanged"
	EventTicketClosed        EventType = "TicketClosed"

	EventAdminNotification EventType = "AdminNotification"
	EventError             EventType = "Error"
)

// Frame is the wire envelope for both directions. Inbound frames carry the
// command name in Type and a loose payload in Data; outbound frames carry
// the event name and a typed payload.
type Frame struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// NewEventFrame builds an outbound event envelope.
func NewEventFrame(event EventType, data any) Frame {
	return Frame{
		ID:        uuid.New().String(),
		Type:      string(event),
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewErrorFrame builds the error event the hub sends back on a rejected
// command.
func NewErrorFrame(code, format string, args ...any) Frame {
	return NewEventFrame(EventError, map[string]any{
		"code":    code,
		"message": fmt.Sprintf(format, args...),
	})
}
