package models

import "time"

// QueueStatus represents the state of a matchmaking queue entry
type QueueStatus string

const (
	QueueStatusWaiting QueueStatus = "waiting"
	QueueStatusMatched QueueStatus = "matched"
)

// WaitingRoomEntry is an anonymous matchmaking stake. A waiting entry means the
// player's stake and fee are held until they are paired or leave.
type WaitingRoomEntry struct {
	ID          string      `db:"id" json:"id"`
	UserID      string      `db:"user_id" json:"userId"`
	DisplayName string      `db:"display_name" json:"displayName"`
	BetAmount   int64       `db:"bet_amount" json:"betAmount"`
	GameFee     int64       `db:"game_fee" json:"gameFee"`
	Status      QueueStatus `db:"status" json:"status"`
	GameID      *string     `db:"game_id" json:"gameId,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
}

// Debit is what the player paid to enter the queue
func (e *WaitingRoomEntry) Debit() int64 {
	return e.BetAmount + e.GameFee
}

// MatchmakingResult is returned to a player joining the queue
type MatchmakingResult struct {
	GameID  *string `json:"gameId"`
	Matched bool    `json:"matched"`
}
