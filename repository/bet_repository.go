package repository

import (
	"context"
	"errors"
	"fmt"

	"rpsarena/database"
	"rpsarena/models"
	"rpsarena/service"

	"github.com/jackc/pgx/v5"
)

// BetRepository implements the BetRepository interface
type BetRepository struct {
	q queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

// newBetRepositoryWithTx creates a new bet repository with a transaction
func newBetRepositoryWithTx(tx queryable) *BetRepository {
	return &BetRepository{q: tx}
}

const betColumns = `id::text, creator_id, creator_name, amount, game_fee, status,
	opponent_id, opponent_name, game_id::text, matched_at, cancelled_at, created_at, updated_at`

func scanBet(row pgx.Row) (*models.Bet, error) {
	var bet models.Bet
	err := row.Scan(
		&bet.ID,
		&bet.CreatorID,
		&bet.CreatorName,
		&bet.Amount,
		&bet.GameFee,
		&bet.Status,
		&bet.OpponentID,
		&bet.OpponentName,
		&bet.GameID,
		&bet.MatchedAt,
		&bet.CancelledAt,
		&bet.CreatedAt,
		&bet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &bet, nil
}

func (r *BetRepository) queryBets(ctx context.Context, query string, args ...any) ([]*models.Bet, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets: %w", err)
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, bet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bets: %w", err)
	}
	return bets, nil
}

// Create inserts a new waiting bet. The partial unique index on creator_id turns a
// second waiting bet into ErrDuplicateWager.
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (id, creator_id, creator_name, amount, game_fee, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		bet.ID,
		bet.CreatorID,
		bet.CreatorName,
		bet.Amount,
		bet.GameFee,
		bet.Status,
	).Scan(&bet.CreatedAt, &bet.UpdatedAt)
	if isUniqueViolation(err) {
		return service.ErrDuplicateWager
	}
	if err != nil {
		return fmt.Errorf("failed to create bet: %w", err)
	}
	return nil
}

// GetByID retrieves a bet by id
func (r *BetRepository) GetByID(ctx context.Context, id string) (*models.Bet, error) {
	return r.get(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a bet and locks its row
func (r *BetRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Bet, error) {
	return r.get(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1 FOR UPDATE`, id)
}

func (r *BetRepository) get(ctx context.Context, query, id string) (*models.Bet, error) {
	if !isUUID(id) {
		return nil, nil
	}

	bet, err := scanBet(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %s: %w", id, err)
	}
	return bet, nil
}

// GetWaitingByCreator returns the creator's waiting bet, if any
func (r *BetRepository) GetWaitingByCreator(ctx context.Context, creatorID string) (*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE creator_id = $1 AND status = 'waiting'`

	bet, err := scanBet(r.q.QueryRow(ctx, query, creatorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waiting bet for %s: %w", creatorID, err)
	}
	return bet, nil
}

// ListWaiting returns open bets, oldest first
func (r *BetRepository) ListWaiting(ctx context.Context, limit int) ([]*models.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets
		WHERE status = 'waiting'
		ORDER BY created_at ASC
		LIMIT $1
	`
	return r.queryBets(ctx, query, limit)
}

// ListMatched returns every matched bet
func (r *BetRepository) ListMatched(ctx context.Context) ([]*models.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets
		WHERE status = 'matched'
		ORDER BY matched_at ASC
	`
	return r.queryBets(ctx, query)
}

// MarkMatched records the opponent and game on a bet that is still waiting
func (r *BetRepository) MarkMatched(ctx context.Context, bet *models.Bet) (bool, error) {
	query := `
		UPDATE bets
		SET status = 'matched', opponent_id = $2, opponent_name = $3, game_id = $4,
		    matched_at = $5, updated_at = NOW()
		WHERE id = $1 AND status = 'waiting'
	`

	tag, err := r.q.Exec(ctx, query, bet.ID, bet.OpponentID, bet.OpponentName, bet.GameID, bet.MatchedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark bet %s matched: %w", bet.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkCancelled cancels a bet that is still waiting
func (r *BetRepository) MarkCancelled(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE bets
		SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'waiting'
	`

	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to cancel bet %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}
