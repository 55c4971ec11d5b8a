package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"maplive-service/internal/models"
	"maplive-service/internal/repositories"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotSessionOwner = errors.New("not the session owner")
	ErrSessionEnded    = errors.New("session has ended")
)

type SessionService interface {
	Create(ctx context.Context, ownerID string, req *models.CreateSessionRequest) (*models.SessionResponse, error)
	Get(ctx context.Context, id string) (*models.SessionResponse, error)
	GetByJoinCode(ctx context.Context, code string) (*models.SessionResponse, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.SessionResponse, error)
	Start(ctx context.Context, ownerID, id string) (*models.SessionResponse, error)
	End(ctx context.Context, ownerID, id string) (*models.SessionResponse, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type sessionService struct {
	sessions repositories.SessionRepository
}

func NewSessionService(sessions repositories.SessionRepository) SessionService {
	return &sessionService{sessions: sessions}
}

// newJoinCode derives a short shareable code. Eight hex chars from a
// fresh uuid is plenty for codes that expire with the session.
func newJoinCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

func (s *sessionService) Create(ctx context.Context, ownerID string, req *models.CreateSessionRequest) (*models.SessionResponse, error) {
	session := &models.Session{
		ID:       uuid.New().String(),
		OwnerID:  ownerID,
		Title:    req.Title,
		JoinCode: newJoinCode(),
		Status:   models.SessionStatusWaiting,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	resp := session.ToResponse()
	return &resp, nil
}

func (s *sessionService) Get(ctx context.Context, id string) (*models.SessionResponse, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	resp := session.ToResponse()
	return &resp, nil
}

func (s *sessionService) GetByJoinCode(ctx context.Context, code string) (*models.SessionResponse, error) {
	session, err := s.sessions.FindByJoinCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, ErrSessionNotFound
	}
	resp := session.ToResponse()
	return &resp, nil
}

func (s *sessionService) ListByOwner(ctx context.Context, ownerID string) ([]models.SessionResponse, error) {
	rows, err := s.sessions.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]models.SessionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToResponse())
	}
	return out, nil
}

func (s *sessionService) Start(ctx context.Context, ownerID, id string) (*models.SessionResponse, error) {
	session, err := s.ownedSession(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionStatusEnded {
		return nil, ErrSessionEnded
	}
	now := time.Now()
	session.Status = models.SessionStatusActive
	if session.StartedAt == nil {
		session.StartedAt = &now
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	resp := session.ToResponse()
	return &resp, nil
}

func (s *sessionService) End(ctx context.Context, ownerID, id string) (*models.SessionResponse, error) {
	session, err := s.ownedSession(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	session.Status = models.SessionStatusEnded
	if session.EndedAt == nil {
		session.EndedAt = &now
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	resp := session.ToResponse()
	return &resp, nil
}

func (s *sessionService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.ownedSession(ctx, ownerID, id); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, id)
}

func (s *sessionService) ownedSession(ctx context.Context, ownerID, id string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if session.OwnerID != ownerID {
		return nil, ErrNotSessionOwner
	}
	return session, nil
}
