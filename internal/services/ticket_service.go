package services

import (
	"context"
	"errors"

	"maplive-service/internal/models"
	"maplive-service/internal/repositories"

	"github.com/google/uuid"
)

var ErrTicketNotFound = errors.New("ticket not found")

type TicketService interface {
	Create(ctx context.Context, userID string, req *models.CreateTicketRequest) (*models.Ticket, error)
	Get(ctx context.Context, id string) (*models.Ticket, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Ticket, error)
	Reply(ctx context.Context, ticketID, authorID string, req *models.ReplyTicketRequest) (*models.TicketReply, error)
	Update(ctx context.Context, id string, req *models.UpdateTicketRequest) (*models.Ticket, error)
	Close(ctx context.Context, id string) (*models.Ticket, error)
}

type ticketService struct {
	tickets repositories.TicketRepository
}

func NewTicketService(tickets repositories.TicketRepository) TicketService {
	return &ticketService{tickets: tickets}
}

func (s *ticketService) Create(ctx context.Context, userID string, req *models.CreateTicketRequest) (*models.Ticket, error) {
	ticket := &models.Ticket{
		ID:      uuid.New().String(),
		UserID:  userID,
		Subject: req.Subject,
		Body:    req.Body,
		Status:  "open",
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *ticketService) Get(ctx context.Context, id string) (*models.Ticket, error) {
	ticket, err := s.tickets.FindByID(ctx, id)
	if err != nil {
		return nil, ErrTicketNotFound
	}
	return ticket, nil
}

func (s *ticketService) ListByUser(ctx context.Context, userID string) ([]*models.Ticket, error) {
	return s.tickets.ListByUser(ctx, userID)
}

func (s *ticketService) Reply(ctx context.Context, ticketID, authorID string, req *models.ReplyTicketRequest) (*models.TicketReply, error) {
	if _, err := s.tickets.FindByID(ctx, ticketID); err != nil {
		return nil, ErrTicketNotFound
	}
	reply := &models.TicketReply{
		ID:       uuid.New().String(),
		TicketID: ticketID,
		AuthorID: authorID,
		Body:     req.Body,
	}
	if err := s.tickets.AddReply(ctx, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *ticketService) Update(ctx context.Context, id string, req *models.UpdateTicketRequest) (*models.Ticket, error) {
	ticket, err := s.tickets.FindByID(ctx, id)
	if err != nil {
		return nil, ErrTicketNotFound
	}
	ticket.Subject = req.Subject
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *ticketService) Close(ctx context.Context, id string) (*models.Ticket, error) {
	ticket, err := s.tickets.FindByID(ctx, id)
	if err != nil {
		return nil, ErrTicketNotFound
	}
	ticket.Status = "closed"
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}
