package service

import (
	"context"
	"errors"
	"fmt"

	"rpsarena/config"
	"rpsarena/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type paymentService struct {
	uowFactory UnitOfWorkFactory
	references PaymentReferenceStore
	config     *config.Config
	now        Clock
}

// NewPaymentService creates a new payment service
func NewPaymentService(uowFactory UnitOfWorkFactory, references PaymentReferenceStore, cfg *config.Config) PaymentService {
	return &paymentService{
		uowFactory: uowFactory,
		references: references,
		config:     cfg,
		now:        systemClock,
	}
}

// InitiateRecharge issues a reference the gateway will call back with
func (s *paymentService) InitiateRecharge(ctx context.Context, userID string, amount int64) (*models.PendingPayment, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	payment := &models.PendingPayment{
		Reference: uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		CreatedAt: s.now(),
	}
	if err := s.references.Save(ctx, payment, s.config.PaymentReferenceTTL); err != nil {
		return nil, fmt.Errorf("failed to save payment reference: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":    userID,
		"amount":    amount,
		"reference": payment.Reference,
	}).Info("Recharge initiated")

	return payment, nil
}

// HandleWebhook applies a gateway callback. Retried callbacks for a reference that was
// already credited are answered without crediting again.
func (s *paymentService) HandleWebhook(ctx context.Context, reference string, status models.PaymentStatus) (*models.CreditResult, error) {
	payment, err := s.references.Get(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment reference: %w", err)
	}
	if payment == nil {
		credited, err := s.alreadyCredited(ctx, reference)
		if err != nil {
			return nil, err
		}
		if !credited {
			return nil, ErrPaymentReferenceUnknown
		}
		return &models.CreditResult{Reference: reference}, nil
	}

	switch status {
	case models.PaymentStatusPending:
		return &models.CreditResult{Reference: reference}, nil
	case models.PaymentStatusFailed:
		s.forget(ctx, reference)
		log.WithFields(log.Fields{
			"userID":    payment.UserID,
			"reference": reference,
		}).Info("Recharge failed at gateway")
		return &models.CreditResult{Reference: reference}, nil
	case models.PaymentStatusSuccess:
		result, err := s.CreditAccount(ctx, payment.UserID, payment.Amount, reference)
		if err != nil {
			return nil, err
		}
		s.forget(ctx, reference)
		return result, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPaymentStatus, status)
	}
}

func (s *paymentService) forget(ctx context.Context, reference string) {
	if err := s.references.Delete(ctx, reference); err != nil {
		log.WithFields(log.Fields{
			"reference": reference,
			"error":     err,
		}).Warn("Failed to delete payment reference")
	}
}

func (s *paymentService) alreadyCredited(ctx context.Context, reference string) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	exists, err := uow.LedgerRepository().ExistsByReference(ctx, reference)
	if err != nil {
		return false, fmt.Errorf("failed to check payment reference: %w", err)
	}
	return exists, nil
}

// CreditAccount books a recharge, opening the account if the user never visited.
// A reference is credited at most once.
func (s *paymentService) CreditAccount(ctx context.Context, userID string, amount int64, reference string) (*models.CreditResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := openAccount(ctx, uow, userID, userID, s.config.StartingBalance)
	if err != nil {
		return nil, err
	}

	result := &models.CreditResult{Reference: reference, NewBalance: account.Balance}

	var ref *string
	if reference != "" {
		exists, err := uow.LedgerRepository().ExistsByReference(ctx, reference)
		if err != nil {
			return nil, fmt.Errorf("failed to check payment reference: %w", err)
		}
		if exists {
			return result, nil
		}
		ref = &reference
	}

	entry, err := credit(ctx, uow, posting{
		AccountID:   userID,
		Kind:        models.LedgerKindRecharge,
		Amount:      amount,
		RelatedType: models.RelatedTypePayment,
		RelatedID:   reference,
		Reference:   ref,
	})
	if errors.Is(err, ErrDuplicateReference) {
		// A concurrent callback for the same reference committed first
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to credit account: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":     userID,
		"amount":     amount,
		"reference":  reference,
		"newBalance": entry.BalanceAfter,
	}).Info("Account recharged")

	result.Credited = true
	result.NewBalance = entry.BalanceAfter
	return result, nil
}

// Withdraw debits amount plus the withdrawal fee. Paying the money out is the
// gateway's job.
func (s *paymentService) Withdraw(ctx context.Context, userID string, amount int64) (*models.LedgerEntry, error) {
	if amount < s.config.MinBet {
		return nil, fmt.Errorf("%w (minimum %d)", ErrBelowMinimum, s.config.MinBet)
	}
	fee := s.config.WithdrawalFee

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

	withdrawalID := uuid.NewString()
	entry, err := debit(ctx, uow, posting{
		AccountID:   userID,
		Kind:        models.LedgerKindWithdrawal,
		Amount:      amount,
		Fee:         fee,
		RelatedType: models.RelatedTypeWithdrawal,
		RelatedID:   withdrawalID,
	})
	if err != nil {
		return nil, err
	}
	if err := recordFee(ctx, uow, userID, fee, models.FeeSourceWithdrawal, withdrawalID); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID": userID,
		"amount": amount,
		"fee":    fee,
	}).Info("Withdrawal booked")

	return entry, nil
}
