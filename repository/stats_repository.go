package repository

import (
	"context"
	"errors"
	"fmt"

	"rpsarena/database"
	"rpsarena/models"

	"github.com/jackc/pgx/v5"
)

// StatsRepository implements the StatsRepository interface
type StatsRepository struct {
	q queryable
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *database.DB) *StatsRepository {
	return &StatsRepository{q: db.Pool}
}

func newStatsRepositoryWithTx(tx queryable) *StatsRepository {
	return &StatsRepository{q: tx}
}

const statsColumns = `s.account_id, a.display_name, s.games_played, s.wins, s.losses,
	s.total_won, s.total_lost, s.updated_at`

func scanStats(row pgx.Row) (*models.PlayerStats, error) {
	var stats models.PlayerStats
	err := row.Scan(
		&stats.AccountID,
		&stats.DisplayName,
		&stats.GamesPlayed,
		&stats.Wins,
		&stats.Losses,
		&stats.TotalWon,
		&stats.TotalLost,
		&stats.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// RecordResult counts one resolved match for the winner and the loser
func (r *StatsRepository) RecordResult(ctx context.Context, winnerID, loserID string, stake int64) error {
	query := `
		INSERT INTO player_stats (account_id, games_played, wins, losses, total_won, total_lost)
		VALUES ($1, 1, 1, 0, $3, 0), ($2, 1, 0, 1, 0, $3)
		ON CONFLICT (account_id) DO UPDATE SET
			games_played = player_stats.games_played + 1,
			wins = player_stats.wins + EXCLUDED.wins,
			losses = player_stats.losses + EXCLUDED.losses,
			total_won = player_stats.total_won + EXCLUDED.total_won,
			total_lost = player_stats.total_lost + EXCLUDED.total_lost,
			updated_at = NOW()
	`

	if _, err := r.q.Exec(ctx, query, winnerID, loserID, stake); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}
	return nil
}

// GetByAccount returns a player's statistics
func (r *StatsRepository) GetByAccount(ctx context.Context, accountID string) (*models.PlayerStats, error) {
	query := `
		SELECT ` + statsColumns + `
		FROM player_stats s
		JOIN accounts a ON a.id = s.account_id
		WHERE s.account_id = $1
	`

	stats, err := scanStats(r.q.QueryRow(ctx, query, accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stats for %s: %w", accountID, err)
	}
	return stats, nil
}

// Leaderboard ranks players by wins, then by net winnings
func (r *StatsRepository) Leaderboard(ctx context.Context, limit int) ([]*models.PlayerStats, error) {
	query := `
		SELECT ` + statsColumns + `
		FROM player_stats s
		JOIN accounts a ON a.id = s.account_id
		ORDER BY s.wins DESC, (s.total_won - s.total_lost) DESC, s.account_id ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var leaders []*models.PlayerStats
	for rows.Next() {
		stats, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		leaders = append(leaders, stats)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}
	return leaders, nil
}
