package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rpsarena/database"
	"rpsarena/models"

	"github.com/jackc/pgx/v5"
)

// MatchRepository implements the MatchRepository interface
type MatchRepository struct {
	q queryable
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{q: db.Pool}
}

// newMatchRepositoryWithTx creates a new match repository with a transaction
func newMatchRepositoryWithTx(tx queryable) *MatchRepository {
	return &MatchRepository{q: tx}
}

const matchColumns = `id::text,
	player1_id, player1_name, player1_choice,
	player2_id, player2_name, player2_choice,
	bet_amount, status, winner_id, round, source,
	choosing_started_at, drawn_at, resolved_at, cancelled_at, cancelled_by, cancel_reason,
	created_at, updated_at`

func scanMatch(row pgx.Row) (*models.Match, error) {
	var match models.Match
	err := row.Scan(
		&match.ID,
		&match.Player1.UserID,
		&match.Player1.DisplayName,
		&match.Player1.Choice,
		&match.Player2.UserID,
		&match.Player2.DisplayName,
		&match.Player2.Choice,
		&match.BetAmount,
		&match.Status,
		&match.WinnerID,
		&match.Round,
		&match.Source,
		&match.ChoosingStartedAt,
		&match.DrawnAt,
		&match.ResolvedAt,
		&match.CancelledAt,
		&match.CancelledBy,
		&match.CancelReason,
		&match.CreatedAt,
		&match.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (r *MatchRepository) queryMatches(ctx context.Context, query string, args ...any) ([]*models.Match, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}

// Create inserts a new match
func (r *MatchRepository) Create(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches (
			id, player1_id, player1_name, player2_id, player2_name,
			bet_amount, status, round, source, choosing_started_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.Exec(ctx, query,
		match.ID,
		match.Player1.UserID,
		match.Player1.DisplayName,
		match.Player2.UserID,
		match.Player2.DisplayName,
		match.BetAmount,
		match.Status,
		match.Round,
		match.Source,
		match.ChoosingStartedAt,
		match.CreatedAt,
		match.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

// GetByID retrieves a match by id
func (r *MatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	return r.get(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a match and locks its row
func (r *MatchRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Match, error) {
	return r.get(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id)
}

func (r *MatchRepository) get(ctx context.Context, query, id string) (*models.Match, error) {
	if !isUUID(id) {
		return nil, nil
	}

	match, err := scanMatch(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}
	return match, nil
}

// Update writes the round state of a match
func (r *MatchRepository) Update(ctx context.Context, match *models.Match) error {
	query := `
		UPDATE matches
		SET player1_choice = $2, player2_choice = $3, status = $4, winner_id = $5, round = $6,
		    choosing_started_at = $7, drawn_at = $8, resolved_at = $9, updated_at = $10
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query,
		match.ID,
		match.Player1.Choice,
		match.Player2.Choice,
		match.Status,
		match.WinnerID,
		match.Round,
		match.ChoosingStartedAt,
		match.DrawnAt,
		match.ResolvedAt,
		match.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update match %s: %w", match.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("match %s not found", match.ID)
	}
	return nil
}

// ListActive returns every match in choosing or draw, oldest first
func (r *MatchRepository) ListActive(ctx context.Context) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE status IN ('choosing', 'draw')
		ORDER BY created_at ASC
	`
	return r.queryMatches(ctx, query)
}

// ListActiveByPlayer returns the user's matches in choosing or draw
func (r *MatchRepository) ListActiveByPlayer(ctx context.Context, userID string) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE status IN ('choosing', 'draw') AND (player1_id = $1 OR player2_id = $1)
		ORDER BY created_at ASC
	`
	return r.queryMatches(ctx, query, userID)
}

// CancelIfActive cancels a match in a single guarded update. Whoever's update lands
// first owns the refund; everyone else gets nil.
func (r *MatchRepository) CancelIfActive(ctx context.Context, id, cancelledBy string, reason models.RefundReason, idleBefore *time.Time) (*models.Match, error) {
	if !isUUID(id) {
		return nil, nil
	}

	query := `
		UPDATE matches
		SET status = 'cancelled', cancelled_at = NOW(), cancelled_by = $2, cancel_reason = $3, updated_at = NOW()
		WHERE id = $1
		  AND status IN ('choosing', 'draw')
		  AND ($4::timestamptz IS NULL OR GREATEST(choosing_started_at, created_at) <= $4::timestamptz)
		RETURNING ` + matchColumns

	match, err := scanMatch(r.q.QueryRow(ctx, query, id, cancelledBy, string(reason), idleBefore))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel match %s: %w", id, err)
	}
	return match, nil
}

// ResetDrawnRound clears both hands and reopens choosing, but only while the match is
// still drawn on the given round
func (r *MatchRepository) ResetDrawnRound(ctx context.Context, id string, round int, now time.Time) (bool, error) {
	query := `
		UPDATE matches
		SET status = 'choosing', player1_choice = NULL, player2_choice = NULL,
		    drawn_at = NULL, choosing_started_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'draw' AND round = $2
	`

	tag, err := r.q.Exec(ctx, query, id, round, now)
	if err != nil {
		return false, fmt.Errorf("failed to reset drawn round of match %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}
