package models

import "time"

// Session statuses as stored. The live hub keeps its own in-memory copy
// of the running state; the row records the durable lifecycle.
const (
	SessionStatusWaiting = "WAITING"
	SessionStatusActive  = "ACTIVE"
	SessionStatusEnded   = "ENDED"
)

// Session is a scheduled live lesson. JoinCode is the short code guests
// type to enter without an account.
type Session struct {
	ID         string     `json:"id" gorm:"primaryKey;type:uuid"`
	OwnerID    string     `json:"ownerId" gorm:"type:uuid;index;not null"`
	Title      string     `json:"title" gorm:"not null"`
	JoinCode   string     `json:"joinCode" gorm:"uniqueIndex;not null"`
	Status     string     `json:"status" gorm:"default:WAITING"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	EndedAt    *time.Time `json:"endedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// CreateSessionRequest is the payload for scheduling a session.
type CreateSessionRequest struct {
	Title string `json:"title" binding:"required,min=1"`
}

// SessionResponse is the API shape for a session row.
type SessionResponse struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Title     string     `json:"title"`
	JoinCode  string     `json:"joinCode"`
	Status    string     `json:"status"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ToResponse converts a row to its API shape.
func (s *Session) ToResponse() SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		Title:     s.Title,
		JoinCode:  s.JoinCode,
		Status:    s.Status,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		CreatedAt: s.CreatedAt,
	}
}
