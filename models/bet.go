package models

import (
	"time"
)

// BetStatus represents the state of a public bet
type BetStatus string

const (
	BetStatusWaiting   BetStatus = "waiting"
	BetStatusMatched   BetStatus = "matched"
	BetStatusCancelled BetStatus = "cancelled"
)

// Bet is a stake a player posted publicly for anyone to join.
// While waiting, the creator's stake and fee have already been debited.
type Bet struct {
	ID           string     `db:"id" json:"id"`
	CreatorID    string     `db:"creator_id" json:"creatorId"`
	CreatorName  string     `db:"creator_name" json:"creatorName"`
	Amount       int64      `db:"amount" json:"amount"`
	GameFee      int64      `db:"game_fee" json:"gameFee"`
	Status       BetStatus  `db:"status" json:"status"`
	OpponentID   *string    `db:"opponent_id" json:"opponentId,omitempty"`
	OpponentName *string    `db:"opponent_name" json:"opponentName,omitempty"`
	GameID       *string    `db:"game_id" json:"gameId,omitempty"`
	MatchedAt    *time.Time `db:"matched_at" json:"matchedAt,omitempty"`
	CancelledAt  *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// IsTerminal reports whether the bet can no longer change state
func (b *Bet) IsTerminal() bool {
	return b.Status == BetStatusMatched || b.Status == BetStatusCancelled
}

// Debit is what the creator paid when posting the bet
func (b *Bet) Debit() int64 {
	return b.Amount + b.GameFee
}

// MarkMatched records the opponent and the match that the bet became
func (b *Bet) MarkMatched(opponentID, opponentName, gameID string, at time.Time) {
	b.Status = BetStatusMatched
	b.OpponentID = &opponentID
	b.OpponentName = &opponentName
	b.GameID = &gameID
	b.MatchedAt = &at
}
