package models

import (
	"time"
)

// LedgerKind is the kind of money movement a ledger entry records
type LedgerKind string

const (
	LedgerKindRecharge   LedgerKind = "recharge"
	LedgerKindBet        LedgerKind = "bet"
	LedgerKindWin        LedgerKind = "win"
	LedgerKindLoss       LedgerKind = "loss"
	LedgerKindRefund     LedgerKind = "refund"
	LedgerKindWithdrawal LedgerKind = "withdrawal"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeBet        RelatedType = "bet"
	RelatedTypeQueueEntry RelatedType = "queue_entry"
	RelatedTypeMatch      RelatedType = "match"
	RelatedTypePayment    RelatedType = "payment"
	RelatedTypeWithdrawal RelatedType = "withdrawal"
)

// LedgerEntry is an immutable record of one money movement
type LedgerEntry struct {
	ID            int64          `db:"id" json:"id"`
	AccountID     string         `db:"account_id" json:"accountId"`
	Kind          LedgerKind     `db:"kind" json:"kind"`
	Amount        int64          `db:"amount" json:"amount"`
	Fee           int64          `db:"fee" json:"fee"`
	BalanceBefore int64          `db:"balance_before" json:"balanceBefore"`
	BalanceAfter  int64          `db:"balance_after" json:"balanceAfter"`
	RelatedID     *string        `db:"related_id" json:"relatedId,omitempty"`
	RelatedType   *RelatedType   `db:"related_type" json:"relatedType,omitempty"`
	Reference     *string        `db:"reference" json:"reference,omitempty"`
	Metadata      map[string]any `db:"metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
}

// SignedEffect returns how much the entry moved the account balance.
// Loss entries are informational: the stake left the account with the bet entry.
func (e *LedgerEntry) SignedEffect() int64 {
	switch e.Kind {
	case LedgerKindRecharge, LedgerKindWin, LedgerKindRefund:
		return e.Amount
	case LedgerKindBet, LedgerKindWithdrawal:
		return -(e.Amount + e.Fee)
	default:
		return 0
	}
}

// RelatedTo points the entry at the entity that caused it
func (e *LedgerEntry) RelatedTo(relatedType RelatedType, id string) *LedgerEntry {
	e.RelatedType = &relatedType
	e.RelatedID = &id
	return e
}

// FeeSource says which flow collected a fee
type FeeSource string

const (
	FeeSourceBet         FeeSource = "bet"
	FeeSourceMatchmaking FeeSource = "matchmaking"
	FeeSourceWithdrawal  FeeSource = "withdrawal"
)

// FeeEntry is a diagnostic record of a collected fee. The ledger stays authoritative.
type FeeEntry struct {
	ID        int64     `db:"id"`
	AccountID string    `db:"account_id"`
	Amount    int64     `db:"amount"`
	Source    FeeSource `db:"source"`
	RelatedID *string   `db:"related_id"`
	CreatedAt time.Time `db:"created_at"`
}
