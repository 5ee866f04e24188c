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

// WaitingRoomRepository implements the WaitingRoomRepository interface
type WaitingRoomRepository struct {
	q queryable
}

// NewWaitingRoomRepository creates a new waiting room repository
func NewWaitingRoomRepository(db *database.DB) *WaitingRoomRepository {
	return &WaitingRoomRepository{q: db.Pool}
}

func newWaitingRoomRepositoryWithTx(tx queryable) *WaitingRoomRepository {
	return &WaitingRoomRepository{q: tx}
}

const waitingRoomColumns = `id::text, user_id, display_name, bet_amount, game_fee, status,
	game_id::text, created_at, updated_at`

func scanWaitingRoomEntry(row pgx.Row) (*models.WaitingRoomEntry, error) {
	var entry models.WaitingRoomEntry
	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.DisplayName,
		&entry.BetAmount,
		&entry.GameFee,
		&entry.Status,
		&entry.GameID,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create inserts a queue entry, either waiting or already matched
func (r *WaitingRoomRepository) Create(ctx context.Context, entry *models.WaitingRoomEntry) error {
	query := `
		INSERT INTO waiting_room_entries (id, user_id, display_name, bet_amount, game_fee, status, game_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.ID,
		entry.UserID,
		entry.DisplayName,
		entry.BetAmount,
		entry.GameFee,
		entry.Status,
		entry.GameID,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if isUniqueViolation(err) {
		return service.ErrAlreadyQueued
	}
	if err != nil {
		return fmt.Errorf("failed to create waiting room entry: %w", err)
	}
	return nil
}

// GetWaitingByUser returns and locks the user's waiting entry
func (r *WaitingRoomRepository) GetWaitingByUser(ctx context.Context, userID string) (*models.WaitingRoomEntry, error) {
	query := `
		SELECT ` + waitingRoomColumns + `
		FROM waiting_room_entries
		WHERE user_id = $1 AND status = 'waiting'
		FOR UPDATE
	`

	entry, err := scanWaitingRoomEntry(r.q.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waiting entry for %s: %w", userID, err)
	}
	return entry, nil
}

// ClaimOpponent locks the longest-waiting entry at stake. Rows held by a concurrent
// join are skipped so two joins never claim the same opponent.
func (r *WaitingRoomRepository) ClaimOpponent(ctx context.Context, stake int64, excludeUserID string) (*models.WaitingRoomEntry, error) {
	query := `
		SELECT ` + waitingRoomColumns + `
		FROM waiting_room_entries
		WHERE status = 'waiting' AND bet_amount = $1 AND user_id <> $2
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	entry, err := scanWaitingRoomEntry(r.q.QueryRow(ctx, query, stake, excludeUserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim opponent at stake %d: %w", stake, err)
	}
	return entry, nil
}

// MarkMatched links a waiting entry to its game
func (r *WaitingRoomRepository) MarkMatched(ctx context.Context, id, gameID string) (bool, error) {
	query := `
		UPDATE waiting_room_entries
		SET status = 'matched', game_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'waiting'
	`

	tag, err := r.q.Exec(ctx, query, id, gameID)
	if err != nil {
		return false, fmt.Errorf("failed to mark waiting entry %s matched: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteWaiting removes an entry that is still waiting
func (r *WaitingRoomRepository) DeleteWaiting(ctx context.Context, id string) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`DELETE FROM waiting_room_entries WHERE id = $1 AND status = 'waiting'`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete waiting entry %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListMatched returns every matched entry
func (r *WaitingRoomRepository) ListMatched(ctx context.Context) ([]*models.WaitingRoomEntry, error) {
	query := `
		SELECT ` + waitingRoomColumns + `
		FROM waiting_room_entries
		WHERE status = 'matched'
		ORDER BY created_at ASC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query matched entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.WaitingRoomEntry
	for rows.Next() {
		entry, err := scanWaitingRoomEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan waiting room entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating waiting room entries: %w", err)
	}
	return entries, nil
}
