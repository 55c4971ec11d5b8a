package models

import "time"

// Ticket is a support request raised by a user. Replies arrive both over
// REST and live through the support hub.
type Ticket struct {
	ID        string        `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string        `json:"userId" gorm:"type:uuid;index;not null"`
	Subject   string        `json:"subject" gorm:"not null"`
	Body      string        `json:"body" gorm:"not null"`
	Status    string        `json:"status" gorm:"default:open"`
	Replies   []TicketReply `json:"replies,omitempty" gorm:"foreignKey:TicketID"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// TicketReply is one message in a ticket thread.
type TicketReply struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	TicketID  string    `json:"ticketId" gorm:"type:uuid;index;not null"`
	AuthorID  string    `json:"authorId" gorm:"type:uuid;not null"`
	Body      string    `json:"body" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateTicketRequest opens a new ticket.
type CreateTicketRequest struct {
	Subject string `json:"subject" binding:"required,min=1"`
	Body    string `json:"body" binding:"required,min=1"`
}

// ReplyTicketRequest appends to a ticket thread.
type ReplyTicketRequest struct {
	Body string `json:"body" binding:"required,min=1"`
}

// UpdateTicketRequest retitles an open ticket.
type UpdateTicketRequest struct {
	Subject string `json:"subject" binding:"required,min=1"`
}
