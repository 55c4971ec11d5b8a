package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "presence:user:"
	presenceTTL       = 60 * time.Second
)

// PresenceService tracks which users currently hold an open hub
// connection. Keys expire on their own, so TTL expiry doubles as the
// offline signal and a crashed node never leaves ghosts behind.
type PresenceService interface {
	MarkOnline(ctx context.Context, userID string) error
	IsOnline(ctx context.Context, userID string) (bool, error)
}

type presenceService struct {
	redis *redis.Client
}

func NewPresenceService(client *redis.Client) PresenceService {
	return &presenceService{redis: client}
}

func presenceKey(userID string) string {
	return fmt.Sprintf("%s%s", presenceKeyPrefix, userID)
}

func (s *presenceService) MarkOnline(ctx context.Context, userID string) error {
	return s.redis.Set(ctx, presenceKey(userID), "1", presenceTTL).Err()
}

func (s *presenceService) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := s.redis.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
