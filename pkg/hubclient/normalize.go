package hubclient

import (
	"time"
)

// eventAliases maps every raw event name the server has ever emitted onto
// the canonical name used by handler maps. Cross-naming between a command
// and its event (SyncMapState producing MapStateSync, reshaped downstream
// as FocusChanged) lives here and nowhere else.
var eventAliases = map[string]string{
	"MapStateSync":            "FocusChanged",
	"QuestionBroadcast":       "QuestionActivated",
	"QuestionResponsesUpdate": "ResponseSubmitted",
	"NewMessage":              "MessageReceived",
	"error":                   "Error",
}

// CanonicalEventName resolves a raw server event name to the canonical
// name. Unknown names pass through unchanged so new server events can be
// handled untyped before the client catalogue catches up.
func CanonicalEventName(raw string) string {
	if canonical, ok := eventAliases[raw]; ok {
		return canonical
	}
	return raw
}

// NormalizeEvent converts a raw server payload into its canonical typed
// event. The second return is false when the event name is unknown; the
// dispatcher drops such events after logging.
func NormalizeEvent(rawName string, data map[string]any) (Event, bool) {
	switch CanonicalEventName(rawName) {
	case "JoinedSession":
		ev := JoinedSessionEvent{
			SessionID:         pickString(data, "sessionId", "SessionId", "SessionID"),
			Status:            pickString(data, "status", "Status", "sessionStatus"),
			TotalParticipants: pickInt(data, "totalParticipants", "TotalParticipants", "participantCount"),
			Leaderboard:       pickLeaderboard(data, "leaderboard", "Leaderboard"),
		}
		for _, raw := range pickSlice(data, "participants", "Participants") {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			ev.Participants = append(ev.Participants, RosterEntry{
				ParticipantID: pickParticipantID(m),
				DisplayName:   pickString(m, "displayName", "DisplayName", "name", "Name"),
			})
		}
		if m, ok := pickMap(data, "mapState", "MapState"); ok {
			ms := normalizeMapState(m)
			ev.MapState = &ms
		}
		if m, ok := pickMap(data, "segmentState", "SegmentState", "segment", "Segment"); ok {
			ss := normalizeSegmentState(m)
			ev.SegmentState = &ss
		}
		if locked, ok := pickBoolOK(data, "mapLockState", "MapLockState", "mapLocked", "isLocked"); ok {
			ev.MapLocked = &locked
		}
		return ev, true

	case "ParticipantJoined":
		return ParticipantJoinedEvent{
			SessionID:         pickString(data, "sessionId", "SessionId", "SessionID"),
			ParticipantID:     pickParticipantID(data),
			DisplayName:       pickString(data, "displayName", "DisplayName", "name", "Name"),
			TotalParticipants: pickInt(data, "totalParticipants", "TotalParticipants", "participantCount"),
		}, true

	case "ParticipantLeft":
		return ParticipantLeftEvent{
			SessionID:         pickString(data, "sessionId", "SessionId", "SessionID"),
			ParticipantID:     pickParticipantID(data),
			TotalParticipants: pickInt(data, "totalParticipants", "TotalParticipants", "participantCount"),
		}, true

	case "QuestionActivated":
		ev := QuestionActivatedEvent{
			SessionID:    pickString(data, "sessionId", "SessionId", "SessionID"),
			QuestionID:   pickString(data, "questionId", "QuestionId", "QuestionID"),
			InstanceID:   pickString(data, "instanceId", "InstanceId", "questionInstanceId", "QuestionInstanceId"),
			Text:         pickString(data, "text", "Text", "questionText", "QuestionText"),
			TimeLimitSec: pickInt(data, "timeLimit", "TimeLimit", "timeLimitSeconds"),
		}
		for _, raw := range pickSlice(data, "options", "Options") {
			if s, ok := raw.(string); ok {
				ev.Options = append(ev.Options, s)
			}
		}
		return ev, true

	case "TimeExtended":
		return TimeExtendedEvent{
			SessionID:         pickString(data, "sessionId", "SessionId", "SessionID"),
			InstanceID:        pickString(data, "instanceId", "InstanceId", "questionInstanceId", "QuestionInstanceId"),
			AdditionalSeconds: pickInt(data, "additionalSeconds", "AdditionalSeconds", "extraSeconds"),
		}, true

	case "QuestionSkipped":
		return QuestionSkippedEvent{
			SessionID:  pickString(data, "sessionId", "SessionId", "SessionID"),
			InstanceID: pickString(data, "instanceId", "InstanceId", "questionInstanceId", "QuestionInstanceId"),
		}, true

	case "ResponseSubmitted":
		return ResponseSubmittedEvent{
			SessionID:     pickString(data, "sessionId", "SessionId", "SessionID"),
			InstanceID:    pickString(data, "instanceId", "InstanceId", "questionInstanceId", "QuestionInstanceId"),
			ParticipantID: pickParticipantID(data),
			ResponseCount: pickInt(data, "responseCount", "ResponseCount", "responses"),
		}, true

	case "QuestionResults":
		ev := QuestionResultsEvent{
			SessionID:  pickString(data, "sessionId", "SessionId", "SessionID"),
			InstanceID: pickString(data, "instanceId", "InstanceId", "questionInstanceId", "QuestionInstanceId"),
			Counts:     map[string]int{},
		}
		if m, ok := pickMap(data, "counts", "Counts", "results", "Results"); ok {
			for option, raw := range m {
				ev.Counts[option] = toInt(raw)
			}
		}
		return ev, true

	case "LeaderboardUpdate":
		return LeaderboardUpdateEvent{
			SessionID: pickString(data, "sessionId", "SessionId", "SessionID"),
			Entries:   pickLeaderboard(data, "entries", "Entries", "leaderboard", "Leaderboard"),
		}, true

	case "FocusChanged":
		viewport := normalizeMapState(data)
		if m, ok := pickMap(data, "mapState", "MapState", "viewport", "Viewport"); ok {
			viewport = normalizeMapState(m)
		}
		return FocusChangedEvent{
			SessionID: pickString(data, "sessionId", "SessionId", "SessionID"),
			Viewport:  viewport,
		}, true

	case "SegmentSync":
		segment := normalizeSegmentState(data)
		if m, ok := pickMap(data, "segment", "Segment", "segmentState", "SegmentState"); ok {
			segment = normalizeSegmentState(m)
		}
		return SegmentSyncEvent{
			SessionID: pickString(data, "sessionId", "SessionId", "SessionID"),
			Segment:   segment,
		}, true

	case "MapLayerSync":
		return MapLayerSyncEvent{
			SessionID: pickString(data, "sessionId", "SessionId", "SessionID"),
			LayerID:   pickString(data, "layerId", "LayerId", "LayerID"),
			Visible:   pickBool(data, "visible", "Visible", "isVisible"),
		}, true

	case "MapLockStateSync":
		return MapLockStateSyncEvent{
			SessionID: pickString(data, "sessionId", "SessionId", "SessionID"),
			Locked:    pickBool(data, "locked", "Locked", "mapLockState", "isLocked"),
		}, true

	case "SessionEnded":
		return SessionEndedEvent{
			SessionID:        pickString(data, "sessionId", "SessionId", "SessionID"),
			FinalLeaderboard: pickLeaderboard(data, "finalLeaderboard", "FinalLeaderboard", "leaderboard", "Leaderboard"),
		}, true

	case "GroupCreated":
		return GroupCreatedEvent{
			GroupID:   pickString(data, "groupId", "GroupId", "GroupID"),
			Name:      pickString(data, "name", "Name", "groupName"),
			CreatedBy: pickString(data, "createdBy", "CreatedBy"),
		}, true

	case "WorkSubmitted":
		return WorkSubmittedEvent{
			GroupID:       pickString(data, "groupId", "GroupId", "GroupID"),
			SubmissionID:  pickString(data, "submissionId", "SubmissionId", "SubmissionID"),
			ParticipantID: pickParticipantID(data),
			Title:         pickString(data, "title", "Title"),
		}, true

	case "SubmissionConfirmed":
		return SubmissionConfirmedEvent{
			GroupID:      pickString(data, "groupId", "GroupId", "GroupID"),
			SubmissionID: pickString(data, "submissionId", "SubmissionId", "SubmissionID"),
			SnapshotURL:  pickString(data, "snapshotUrl", "SnapshotUrl", "snapshotURL"),
		}, true

	case "SubmissionGraded":
		return SubmissionGradedEvent{
			GroupID:      pickString(data, "groupId", "GroupId", "GroupID"),
			SubmissionID: pickString(data, "submissionId", "SubmissionId", "SubmissionID"),
			Score:        pickInt(data, "score", "Score", "grade"),
			Feedback:     pickString(data, "feedback", "Feedback"),
		}, true

	case "DrawingReceived":
		ev := DrawingReceivedEvent{
			GroupID:       pickString(data, "groupId", "GroupId", "GroupID"),
			ParticipantID: pickParticipantID(data),
		}
		if m, ok := pickMap(data, "stroke", "Stroke", "drawing", "Drawing"); ok {
			ev.Stroke = m
		}
		return ev, true

	case "CursorMoved":
		return CursorMovedEvent{
			GroupID:       pickString(data, "groupId", "GroupId", "GroupID"),
			ParticipantID: pickParticipantID(data),
			Latitude:      pickFloat(data, "latitude", "Latitude", "lat"),
			Longitude:     pickFloat(data, "longitude", "Longitude", "lng"),
		}, true

	case "MessageReceived":
		ev := MessageReceivedEvent{
			RoomID:   pickString(data, "roomId", "RoomId", "ticketId", "groupId", "channelId"),
			SenderID: pickString(data, "senderId", "SenderId", "userId", "UserId"),
			Sender:   pickString(data, "sender", "Sender", "senderName"),
			Text:     pickString(data, "text", "Text", "message", "content"),
		}
		if raw := pickString(data, "sentAt", "SentAt", "timestamp"); raw != "" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				ev.SentAt = t
			}
		}
		return ev, true

	case "MemberTyping":
		return MemberTypingEvent{
			RoomID:        pickString(data, "roomId", "RoomId", "ticketId", "groupId"),
			ParticipantID: pickParticipantID(data),
		}, true

	case "TicketCreated":
		return TicketCreatedEvent{
			TicketID: pickString(data, "ticketId", "TicketId", "TicketID"),
			Subject:  pickString(data, "subject", "Subject", "title"),
			Status:   pickString(data, "status", "Status"),
		}, true

	case "TicketUpdated":
		return TicketUpdatedEvent{
			TicketID: pickString(data, "ticketId", "TicketId", "TicketID"),
			Subject:  pickString(data, "subject", "Subject", "title"),
			Status:   pickString(data, "status", "Status"),
		}, true

	case "TicketReply":
		return TicketReplyEvent{
			TicketID: pickString(data, "ticketId", "TicketId", "TicketID"),
			ReplyID:  pickString(data, "replyId", "ReplyId", "ReplyID"),
			Author:   pickString(data, "author", "Author", "senderName"),
			Text:     pickString(data, "text", "Text", "message", "content"),
		}, true

	case "TicketStatusChanged":
		return TicketStatusChangedEvent{
			TicketID: pickString(data, "ticketId", "TicketId", "TicketID"),
			Status:   pickString(data, "status", "Status"),
		}, true

	case "TicketClosed":
		return TicketClosedEvent{
			TicketID: pickString(data, "ticketId", "TicketId", "TicketID"),
		}, true

	case "AdminNotification":
		return AdminNotificationEvent{
			Level:   pickString(data, "level", "Level", "severity"),
			Title:   pickString(data, "title", "Title"),
			Message: pickString(data, "message", "Message", "text"),
		}, true

	case "Error":
		return ErrorEvent{
			Code:    pickString(data, "code", "Code"),
			Message: pickString(data, "message", "Message", "error"),
		}, true
	}

	return nil, false
}

// pickParticipantID coalesces every alias the server has used for a
// participant identifier.
func pickParticipantID(m map[string]any) string {
	return pickString(m,
		"participantId", "ParticipantId", "ParticipantID",
		"sessionParticipantId", "SessionParticipantId")
}

func normalizeMapState(m map[string]any) MapState {
	return MapState{
		Latitude:  pickFloat(m, "latitude", "Latitude", "lat"),
		Longitude: pickFloat(m, "longitude", "Longitude", "lng", "lon"),
		Zoom:      pickFloat(m, "zoom", "Zoom", "zoomLevel", "ZoomLevel"),
		Bearing:   pickFloat(m, "bearing", "Bearing"),
		Pitch:     pickFloat(m, "pitch", "Pitch"),
	}
}

func normalizeSegmentState(m map[string]any) SegmentState {
	return SegmentState{
		Index:     pickInt(m, "index", "Index", "segmentIndex", "SegmentIndex"),
		SegmentID: pickString(m, "segmentId", "SegmentId", "SegmentID"),
		Playing:   pickBool(m, "playing", "Playing", "isPlaying", "IsPlaying"),
	}
}

func pickLeaderboard(m map[string]any, keys ...string) []LeaderboardEntry {
	var entries []LeaderboardEntry
	for _, raw := range pickSlice(m, keys...) {
		em, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			ParticipantID: pickString(em, "participantId", "ParticipantId", "sessionParticipantId", "id", "Id"),
			DisplayName:   pickString(em, "displayName", "DisplayName", "name", "Name"),
			Score:         pickInt(em, "score", "Score"),
			Rank:          pickInt(em, "rank", "Rank"),
		})
	}
	return entries
}

// pickString returns the first key present in m with a string value.
func pickString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func pickInt(m map[string]any, keys ...string) int {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return toInt(v)
		}
	}
	return 0
}

func pickFloat(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch n := v.(type) {
			case float64:
				return n
			case float32:
				return float64(n)
			case int:
				return float64(n)
			case int64:
				return float64(n)
			}
		}
	}
	return 0
}

func pickBool(m map[string]any, keys ...string) bool {
	b, _ := pickBoolOK(m, keys...)
	return b
}

func pickBoolOK(m map[string]any, keys ...string) (bool, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if b, ok := v.(bool); ok {
				return b, true
			}
		}
	}
	return false, false
}

func pickSlice(m map[string]any, keys ...string) []any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.([]any); ok {
				return s
			}
		}
	}
	return nil
}

func pickMap(m map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if mm, ok := v.(map[string]any); ok {
				return mm, true
			}
		}
	}
	return nil, false
}

// toInt converts the numeric shapes encoding/json produces into an int.
func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case float32:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}
