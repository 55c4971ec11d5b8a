package services

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Standing is one row of a session's current score ranking.
type Standing struct {
	ParticipantID string `json:"participantId"`
	Score         int    `json:"score"`
	Rank          int    `json:"rank"`
}

// StandingsService reads the per-session score mirror the hub keeps in
// Redis, so dashboards get current standings without touching the hub.
type StandingsService interface {
	Standings(ctx context.Context, sessionID string) ([]Standing, error)
}

type standingsService struct {
	redis *redis.Client
}

func NewStandingsService(client *redis.Client) StandingsService {
	return &standingsService{redis: client}
}

// standingsKey must match the key the hub mirrors scores under.
func standingsKey(sessionID string) string {
	return "leaderboard:" + sessionID
}

func (s *standingsService) Standings(ctx context.Context, sessionID string) ([]Standing, error) {
	rows, err := s.redis.ZRevRangeWithScores(ctx, standingsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	standings := make([]Standing, 0, len(rows))
	for i, row := range rows {
		member, _ := row.Member.(string)
		standings = append(standings, Standing{
			ParticipantID: member,
			Score:         int(row.Score),
			Rank:          i + 1,
		})
	}
	return standings, nil
}
