package service

import (
	"context"
	"fmt"

	"rpsarena/events"
	"rpsarena/models"
)

// posting describes one money movement before it hits the ledger
type posting struct {
	AccountID   string
	Kind        models.LedgerKind
	Amount      int64
	Fee         int64
	RelatedType models.RelatedType
	RelatedID   string
	Reference   *string
	Metadata    map[string]any
}

func (p posting) entry(before, after int64) *models.LedgerEntry {
	entry := &models.LedgerEntry{
		AccountID:     p.AccountID,
		Kind:          p.Kind,
		Amount:        p.Amount,
		Fee:           p.Fee,
		BalanceBefore: before,
		BalanceAfter:  after,
		Reference:     p.Reference,
		Metadata:      p.Metadata,
	}
	if p.RelatedID != "" {
		entry.RelatedTo(p.RelatedType, p.RelatedID)
	}
	return entry
}

// RecordLedgerEntry appends an entry and emits the matching event.
// This is the single entry point for all ledger writes in the system.
func RecordLedgerEntry(ctx context.Context, uow UnitOfWork, entry *models.LedgerEntry) error {
	if err := uow.LedgerRepository().Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	uow.EventBus().Publish(events.LedgerEntryRecordedEvent{
		EntryID:       entry.ID,
		AccountID:     entry.AccountID,
		Kind:          entry.Kind,
		Amount:        entry.Amount,
		Fee:           entry.Fee,
		BalanceBefore: entry.BalanceBefore,
		BalanceAfter:  entry.BalanceAfter,
	})
	return nil
}

// debit takes amount+fee from the account with a guarded decrement and records it
func debit(ctx context.Context, uow UnitOfWork, p posting) (*models.LedgerEntry, error) {
	total := p.Amount + p.Fee
	newBalance, err := uow.AccountRepository().DeductBalance(ctx, p.AccountID, total)
	if err != nil {
		return nil, err
	}

	entry := p.entry(newBalance+total, newBalance)
	if err := RecordLedgerEntry(ctx, uow, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// credit adds amount to the account and records it
func credit(ctx context.Context, uow UnitOfWork, p posting) (*models.LedgerEntry, error) {
	newBalance, err := uow.AccountRepository().AddBalance(ctx, p.AccountID, p.Amount)
	if err != nil {
		return nil, err
	}

	entry := p.entry(newBalance-p.Amount, newBalance)
	if err := RecordLedgerEntry(ctx, uow, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// note records an entry that does not move the balance, such as a match loss
func note(ctx context.Context, uow UnitOfWork, p posting) (*models.LedgerEntry, error) {
	account, err := uow.AccountRepository().GetByID(ctx, p.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	entry := p.entry(account.Balance, account.Balance)
	if err := RecordLedgerEntry(ctx, uow, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// stakeWager debits stake+fee for a bet or a queue entry and logs the fee
func stakeWager(ctx context.Context, uow UnitOfWork, accountID string, stake, fee int64, relatedType models.RelatedType, relatedID string, source models.FeeSource) (*models.LedgerEntry, error) {
	entry, err := debit(ctx, uow, posting{
		AccountID:   accountID,
		Kind:        models.LedgerKindBet,
		Amount:      stake,
		Fee:         fee,
		RelatedType: relatedType,
		RelatedID:   relatedID,
	})
	if err != nil {
		return nil, err
	}

	if err := recordFee(ctx, uow, accountID, fee, source, relatedID); err != nil {
		return nil, err
	}
	return entry, nil
}

func recordFee(ctx context.Context, uow UnitOfWork, accountID string, fee int64, source models.FeeSource, relatedID string) error {
	if fee == 0 {
		return nil
	}
	feeEntry := &models.FeeEntry{
		AccountID: accountID,
		Amount:    fee,
		Source:    source,
		RelatedID: &relatedID,
	}
	if err := uow.FeeRepository().Record(ctx, feeEntry); err != nil {
		return fmt.Errorf("failed to record fee: %w", err)
	}
	return nil
}
