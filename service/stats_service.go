package service

import (
	"context"
	"fmt"

	"rpsarena/models"
)

const maxLeaderboardSize = 50

// statsService implements the StatsService interface
type statsService struct {
	uowFactory UnitOfWorkFactory
}

// NewStatsService creates a new stats service
func NewStatsService(uowFactory UnitOfWorkFactory) StatsService {
	return &statsService{
		uowFactory: uowFactory,
	}
}

// GetPlayerStats returns the player's record. A player who never finished a game gets zeroes.
func (s *statsService) GetPlayerStats(ctx context.Context, userID string) (*models.PlayerStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stats, err := uow.StatsRepository().GetByAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	if stats == nil {
		return &models.PlayerStats{AccountID: userID}, nil
	}
	return stats, nil
}

// GetLeaderboard returns the players with the most wins
func (s *statsService) GetLeaderboard(ctx context.Context, limit int) ([]*models.PlayerStats, error) {
	if limit <= 0 || limit > maxLeaderboardSize {
		limit = 10
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entries, err := uow.StatsRepository().Leaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return entries, nil
}
