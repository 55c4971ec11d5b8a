package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// inboundFrame is a client command before any payload typing.
type inboundFrame struct {
	ID        string         `json:"id,omitempty"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp int64          `json:"timestamp,omitempty"`
}

func marshalFrame(frame Frame) ([]byte, error) {
	return json.Marshal(frame)
}

// handleCommand routes one inbound command. Commands are gated by the hub
// kind the client connected through; the wrong kind gets an Error event,
// never a dropped connection.
func (h *Hub) handleCommand(c *Client, frame inboundFrame) {
	cmd := CommandType(frame.Type)

	switch c.kind {
	case KindSession:
		h.handleSessionCommand(c, cmd, frame.Data)
	case KindGroup:
		h.handleGroupCommand(c, cmd, frame.Data)
	case KindTicket:
		h.handleTicketCommand(c, cmd, frame.Data)
	default:
		c.sendEvent(NewErrorFrame("unsupported_command", "hub %s does not accept commands", c.kind))
	}
}

func (h *Hub) handleSessionCommand(c *Client, cmd CommandType, data map[string]any) {
	sessionID := getString(data, "sessionId", "SessionId")
	if sessionID == "" {
		c.sendEvent(NewErrorFrame("missing_session_id", "command %s requires a session id", cmd))
		return
	}
	room := "session:" + sessionID

	switch cmd {
	case CommandJoinSession:
		h.joinSession(c, sessionID, data)
		return
	case CommandLeaveSession:
		if c.inRoom(room) {
			h.removeFromRoom(c, room)
			h.announceParticipantLeft(sessionID, c)
		}
		return
	}

	// Every other session command requires membership.
	if !c.inRoom(room) {
		c.sendEvent(NewErrorFrame("not_in_session", "join session %s before issuing %s", sessionID, cmd))
		return
	}
	ls := h.session(sessionID)

	switch cmd {
	case CommandSyncMapState:
		state := &mapState{
			Latitude:  getFloat(data, "latitude", "lat"),
			Longitude: getFloat(data, "longitude", "lng"),
			Zoom:      getFloat(data, "zoomLevel", "zoom"),
			Bearing:   getFloat(data, "bearing"),
			Pitch:     getFloat(data, "pitch"),
		}
		ls.mu.Lock()
		ls.MapState = state
		ls.mu.Unlock()
		h.BroadcastToRoom(room, EventMapStateSync, map[string]any{
			"sessionId": sessionID,
			"latitude":  state.Latitude,
			"longitude": state.Longitude,
			"zoomLevel": state.Zoom,
			"bearing":   state.Bearing,
			"pitch":     state.Pitch,
		})

	case CommandSyncSegment:
		segment := &segmentState{
			Index:     getInt(data, "index", "segmentIndex"),
			SegmentID: getString(data, "segmentId", "SegmentId"),
			Playing:   getBool(data, "playing", "isPlaying"),
		}
		ls.mu.Lock()
		ls.Segment = segment
		ls.mu.Unlock()
		h.BroadcastToRoom(room, EventSegmentSync, map[string]any{
			"sessionId": sessionID,
			"segment":   segment,
		})

	case CommandSyncMapLockState:
		locked := getBool(data, "locked", "mapLockState")
		ls.mu.Lock()
		ls.MapLocked = locked
		ls.mu.Unlock()
		h.BroadcastToRoom(room, EventMapLockStateSync, map[string]any{
			"sessionId": sessionID,
			"locked":    locked,
		})

	case CommandSyncMapLayer:
		layerID := getString(data, "layerId", "LayerId")
		visible := getBool(data, "visible", "isVisible")
		if layerID == "" {
			c.sendEvent(NewErrorFrame("missing_layer_id", "SyncMapLayer requires a layer id"))
			return
		}
		ls.mu.Lock()
		ls.Layers[layerID] = visible
		ls.mu.Unlock()
		h.BroadcastToRoom(room, EventMapLayerSync, map[string]any{
			"sessionId": sessionID,
			"layerId":   layerID,
			"visible":   visible,
		})

	case CommandBroadcastQuestion:
		options := getStringSlice(data, "options", "Options")
		q := ls.activateQuestion(
			getString(data, "questionId", "QuestionId"),
			getString(data, "text", "questionText"),
			options,
			getInt(data, "timeLimit", "timeLimitSeconds"),
		)
		h.BroadcastToRoom(room, EventQuestionActivated, map[string]any{
			"sessionId":  sessionID,
			"questionId": q.QuestionID,
			"instanceId": q.InstanceID,
			"text":       q.Text,
			"options":    q.Options,
			"timeLimit":  q.TimeLimit,
		})

	case CommandExtendTime:
		instanceID := getString(data, "instanceId", "questionInstanceId")
		additional := getInt(data, "additionalSeconds", "extraSeconds")
		if !ls.extendQuestion(instanceID, additional) {
			slog.Debug("ignoring stale time extension", "session", sessionID, "instance", instanceID)
			return
		}
		h.BroadcastToRoom(room, EventTimeExtended, map[string]any{
			"sessionId":         sessionID,
			"instanceId":        instanceID,
			"additionalSeconds": additional,
		})

	case CommandSkipQuestion:
		instanceID := getString(data, "instanceId", "questionInstanceId")
		if !ls.skipQuestion(instanceID) {
			return
		}
		h.BroadcastToRoom(room, EventQuestionSkipped, map[string]any{
			"sessionId":  sessionID,
			"instanceId": instanceID,
		})

	case CommandSubmitResponse:
		instanceID := getString(data, "instanceId", "questionInstanceId")
		count, accepted := ls.recordResponse(instanceID, c.participantID(), getString(data, "option", "answer"))
		if !accepted {
			return
		}
		// The response event carries no answer content; answers stay
		// hidden until results are shown.
		h.BroadcastToRoom(room, EventResponseSubmitted, map[string]any{
			"sessionId":     sessionID,
			"instanceId":    instanceID,
			"participantId": c.participantID(),
			"responseCount": count,
		})
		h.BroadcastToRoom(room, EventLeaderboardUpdate, map[string]any{
			"sessionId": sessionID,
			"entries":   ls.leaderboard(),
		})
		h.mirrorLeaderboard(sessionID, ls)

	case CommandShowResults:
		instanceID := getString(data, "instanceId", "questionInstanceId")
		counts, ok := ls.results(instanceID)
		if !ok {
			c.sendEvent(NewErrorFrame("no_such_question", "question instance %s is not active", instanceID))
			return
		}
		h.BroadcastToRoom(room, EventQuestionResults, map[string]any{
			"sessionId":  sessionID,
			"instanceId": instanceID,
			"counts":     counts,
		})

	case CommandEndSession:
		final, ok := ls.end()
		if !ok {
			return
		}
		h.BroadcastToRoom(room, EventSessionEnded, map[string]any{
			"sessionId":        sessionID,
			"finalLeaderboard": final,
		})

	default:
		c.sendEvent(NewErrorFrame("unsupported_command", "session hub does not handle %s", cmd))
	}
}

// joinSession adds the client to the room, answers with the pre-join
// snapshot (late-joiner seeding) and then announces the new participant.
// Snapshot-before-add means the joiner's roster starts without themselves
// and their own ParticipantJoined follows, the same ordering every other
// member observes.
func (h *Hub) joinSession(c *Client, sessionID string, data map[string]any) {
	room := "session:" + sessionID
	if c.inRoom(room) {
		return
	}

	displayName := getString(data, "displayName", "DisplayName")
	if displayName == "" {
		displayName = c.displayName
	}
	if displayName == "" {
		displayName = "Guest"
	}

	ls := h.session(sessionID)
	h.addToRoom(c, room)
	c.sendEvent(NewEventFrame(EventJoinedSession, ls.snapshot()))

	total := ls.addParticipant(c.participantID(), displayName)
	h.BroadcastToRoom(room, EventParticipantJoined, map[string]any{
		"sessionId":         sessionID,
		"participantId":     c.participantID(),
		"displayName":       displayName,
		"totalParticipants": total,
	})
}

func (h *Hub) handleGroupCommand(c *Client, cmd CommandType, data map[string]any) {
	if cmd == CommandCreateGroup {
		groupID := uuid.New().String()
		name := getString(data, "name", "groupName")
		h.addToRoom(c, "group:"+groupID)
		h.BroadcastToRoom("group:"+groupID, EventGroupCreated, map[string]any{
			"groupId":   groupID,
			"name":      name,
			"createdBy": c.participantID(),
		})
		return
	}

	groupID := getString(data, "groupId", "GroupId")
	if groupID == "" {
		c.sendEvent(NewErrorFrame("missing_group_id", "command %s requires a group id", cmd))
		return
	}
	room := "group:" + groupID

	switch cmd {
	case CommandJoinGroup:
		h.addToRoom(c, room)
		return
	case CommandLeaveGroup:
		h.removeFromRoom(c, room)
		return
	}

	if !c.inRoom(room) {
		c.sendEvent(NewErrorFrame("not_in_group", "join group %s before issuing %s", groupID, cmd))
		return
	}

	switch cmd {
	case CommandSubmitGroupWork:
		h.submitGroupWork(c, groupID, data)

	case CommandGradeSubmission:
		h.BroadcastToRoom(room, EventSubmissionGraded, map[string]any{
			"groupId":      groupID,
			"submissionId": getString(data, "submissionId", "SubmissionId"),
			"score":        getInt(data, "score", "grade"),
			"feedback":     getString(data, "feedback", "Feedback"),
		})

	case CommandSendDrawing:
		stroke, _ := data["stroke"].(map[string]any)
		h.BroadcastToRoom(room, EventDrawingReceived, map[string]any{
			"groupId":       groupID,
			"participantId": c.participantID(),
			"stroke":        stroke,
		})

	case CommandSendCursorPosition:
		h.BroadcastToRoom(room, EventCursorMoved, map[string]any{
			"groupId":       groupID,
			"participantId": c.participantID(),
			"latitude":      getFloat(data, "latitude", "lat"),
			"longitude":     getFloat(data, "longitude", "lng"),
		})

	case CommandSendMessage:
		h.BroadcastToRoom(room, EventMessageReceived, map[string]any{
			"roomId":   groupID,
			"senderId": c.participantID(),
			"sender":   c.displayName,
			"text":     getString(data, "text", "message"),
			"sentAt":   time.Now().UTC().Format(time.RFC3339),
		})

	case CommandNotifyTyping:
		h.BroadcastToRoom(room, EventMemberTyping, map[string]any{
			"roomId":        groupID,
			"participantId": c.participantID(),
		})

	default:
		c.sendEvent(NewErrorFrame("unsupported_command", "group hub does not handle %s", cmd))
	}
}

// submitGroupWork stores the optional drawing snapshot, confirms to the
// submitter and announces the submission to the group.
func (h *Hub) submitGroupWork(c *Client, groupID string, data map[string]any) {
	submissionID := uuid.New().String()
	title := getString(data, "title", "Title")

	snapshotURL := ""
	if snapshot := getString(data, "snapshot", "drawingSnapshot"); snapshot != "" && h.store != nil {
		name := fmt.Sprintf("groups/%s/%s.json", groupID, submissionID)
		url, err := h.store.SaveSnapshot(h.ctx, name, []byte(snapshot), "application/json")
		if err != nil {
			slog.Error("failed to store drawing snapshot", "group", groupID, "error", err)
		} else {
			snapshotURL = url
		}
	}

	c.sendEvent(NewEventFrame(EventSubmissionConfirmed, map[string]any{
		"groupId":      groupID,
		"submissionId": submissionID,
		"snapshotUrl":  snapshotURL,
	}))
	h.BroadcastToRoom("group:"+groupID, EventWorkSubmitted, map[string]any{
		"groupId":       groupID,
		"submissionId":  submissionID,
		"participantId": c.participantID(),
		"title":         title,
	})
}

func (h *Hub) handleTicketCommand(c *Client, cmd CommandType, data map[string]any) {
	ticketID := getString(data, "ticketId", "TicketId")
	if ticketID == "" {
		c.sendEvent(NewErrorFrame("missing_ticket_id", "command %s requires a ticket id", cmd))
		return
	}
	room := "ticket:" + ticketID

	switch cmd {
	case CommandJoinTicketRoom:
		h.addToRoom(c, room)

	case CommandLeaveTicketRoom:
		h.removeFromRoom(c, room)

	case CommandSendMessage:
		if !c.inRoom(room) {
			c.sendEvent(NewErrorFrame("not_in_ticket_room", "join ticket %s before sending", ticketID))
			return
		}
		h.BroadcastToRoom(room, EventMessageReceived, map[string]any{
			"roomId":   ticketID,
			"senderId": c.participantID(),
			"sender":   c.displayName,
			"text":     getString(data, "text", "message"),
			"sentAt":   time.Now().UTC().Format(time.RFC3339),
		})

	case CommandNotifyTyping:
		if c.inRoom(room) {
			h.BroadcastToRoom(room, EventMemberTyping, map[string]any{
				"roomId":        ticketID,
				"participantId": c.participantID(),
			})
		}

	default:
		c.sendEvent(NewErrorFrame("unsupported_command", "ticket hub does not handle %s", cmd))
	}
}

// mirrorLeaderboard keeps a Redis ZSET per session in step with the
// authoritative in-memory scores, so REST surfaces can read standings
// without touching the hub.
func (h *Hub) mirrorLeaderboard(sessionID string, ls *liveSession) {
	if h.redis == nil {
		return
	}
	key := "leaderboard:" + sessionID
	ls.mu.Lock()
	scores := make(map[string]int, len(ls.Scores))
	for id, score := range ls.Scores {
		scores[id] = score
	}
	ls.mu.Unlock()

	pipe := h.redis.Pipeline()
	for id, score := range scores {
		pipe.ZAdd(h.ctx, key, redis.Z{Score: float64(score), Member: id})
	}
	pipe.Expire(h.ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(h.ctx); err != nil {
		slog.Warn("leaderboard mirror failed", "session", sessionID, "error", err)
	}
}

// Payload helpers. The web client has shipped both camelCase and PascalCase
// keys over time, so commands get the same alias tolerance events do.

func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func getInt(m map[string]any, keys ...string) int {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch n := v.(type) {
			case float64:
				return int(n)
			case int:
				return n
			}
		}
	}
	return 0
}

func getFloat(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch n := v.(type) {
			case float64:
				return n
			case int:
				return float64(n)
			}
		}
	}
	return 0
}

func getBool(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
	}
	return false
}

func getStringSlice(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if raw, ok := v.([]any); ok {
				out := make([]string, 0, len(raw))
				for _, item := range raw {
					if s, ok := item.(string); ok {
						out = append(out, s)
					}
				}
				return out
			}
		}
	}
	return nil
}
