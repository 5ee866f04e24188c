package models

import "time"

// Account is a player's wallet. Balance is in minor currency units and only ever
// changes through the ledger.
type Account struct {
	ID             string    `db:"id" json:"id"`
	DisplayName    string    `db:"display_name" json:"displayName"`
	Balance        int64     `db:"balance" json:"balance"`
	InitialBalance int64     `db:"initial_balance" json:"initialBalance"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// CanAfford reports whether the account can cover amount
func (a *Account) CanAfford(amount int64) bool {
	return a.Balance >= amount
}

// LedgerAudit compares an account's balance movement with the sum of its ledger entries
type LedgerAudit struct {
	AccountID      string `json:"accountId"`
	Balance        int64  `json:"balance"`
	InitialBalance int64  `json:"initialBalance"`
	LedgerDelta    int64  `json:"ledgerDelta"`
	EntryCount     int    `json:"entryCount"`
	Consistent     bool   `json:"consistent"`
}

// NewLedgerAudit builds the audit for account given the summed signed effects of its entries
func NewLedgerAudit(account *Account, ledgerDelta int64, entryCount int) *LedgerAudit {
	return &LedgerAudit{
		AccountID:      account.ID,
		Balance:        account.Balance,
		InitialBalance: account.InitialBalance,
		LedgerDelta:    ledgerDelta,
		EntryCount:     entryCount,
		Consistent:     account.InitialBalance+ledgerDelta == account.Balance,
	}
}
