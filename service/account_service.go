package service

import (
	"context"
	"fmt"

	"rpsarena/config"
	"rpsarena/models"

	log "github.com/sirupsen/logrus"
)

const maxLedgerPage = 200

type accountService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewAccountService creates a new account service
func NewAccountService(uowFactory UnitOfWorkFactory, cfg *config.Config) AccountService {
	return &accountService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

// GetOrCreateAccount returns the caller's account, opening it with the starting balance on first use
func (s *accountService) GetOrCreateAccount(ctx context.Context, userID, displayName string) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := openAccount(ctx, uow, userID, displayName, s.config.StartingBalance)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return account, nil
}

// GetAccount returns an existing account
func (s *accountService) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// GetLedger returns the newest ledger entries of an account
func (s *accountService) GetLedger(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error) {
	if limit <= 0 || limit > maxLedgerPage {
		limit = maxLedgerPage
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entries, err := uow.LedgerRepository().ListByAccount(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

// AuditLedger verifies that the ledger explains the balance movement since the account opened
func (s *accountService) AuditLedger(ctx context.Context, userID string) (*models.LedgerAudit, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Lock the account so no entry lands between the two reads
	account, err := uow.AccountRepository().GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	delta, count, err := uow.LedgerRepository().SumSignedEffects(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger entries: %w", err)
	}

	audit := models.NewLedgerAudit(account, delta, count)
	if !audit.Consistent {
		log.WithFields(log.Fields{
			"accountID":      account.ID,
			"balance":        account.Balance,
			"initialBalance": account.InitialBalance,
			"ledgerDelta":    delta,
			"integrity":      true,
		}).Warn("Ledger does not explain account balance")
	}
	return audit, nil
}

// openAccount returns the account, creating it if this is the user's first visit
func openAccount(ctx context.Context, uow UnitOfWork, userID, displayName string, startingBalance int64) (*models.Account, error) {
	account, err := uow.AccountRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if account != nil {
		return account, nil
	}

	account, err = uow.AccountRepository().Create(ctx, userID, displayName, startingBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID": userID,
		"balance":   startingBalance,
	}).Info("Opened account")
	return account, nil
}
