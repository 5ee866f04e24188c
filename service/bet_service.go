package service

import (
	"context"
	"fmt"

	"rpsarena/config"
	"rpsarena/events"
	"rpsarena/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const maxOpenBetsPage = 100

type betService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
	now        Clock
}

// NewBetService creates a new bet service
func NewBetService(uowFactory UnitOfWorkFactory, cfg *config.Config) BetService {
	return &betService{
		uowFactory: uowFactory,
		config:     cfg,
		now:        systemClock,
	}
}

// CreateBet debits stake+fee from the creator and posts a waiting bet
func (s *betService) CreateBet(ctx context.Context, userID, displayName string, amount int64) (*models.Bet, error) {
	if amount < s.config.MinBet {
		return nil, fmt.Errorf("%w (minimum %d)", ErrBelowMinimum, s.config.MinBet)
	}
	fee := s.config.GameFee

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
	if !account.CanAfford(amount + fee) {
		return nil, insufficientFunds(account.Balance, amount+fee)
	}

	existing, err := uow.BetRepository().GetWaitingByCreator(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check waiting bets: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateWager
	}

	bet := &models.Bet{
		ID:          uuid.NewString(),
		CreatorID:   userID,
		CreatorName: displayName,
		Amount:      amount,
		GameFee:     fee,
		Status:      models.BetStatusWaiting,
	}

	// Debit first: the bet only becomes visible once the money is held
	if _, err := stakeWager(ctx, uow, userID, amount, fee, models.RelatedTypeBet, bet.ID, models.FeeSourceBet); err != nil {
		return nil, err
	}

	if err := uow.BetRepository().Create(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to create bet: %w", err)
	}

	uow.EventBus().Publish(events.WagerPlacedEvent{
		WagerKind: models.WagerKindBet,
		WagerID:   bet.ID,
		AccountID: userID,
		Amount:    amount,
		Fee:       fee,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"betID":   bet.ID,
		"creator": userID,
		"amount":  amount,
	}).Info("Bet created")

	return bet, nil
}

// JoinBet debits the joiner and turns the bet into a match in one transaction
func (s *betService) JoinBet(ctx context.Context, betID, userID, displayName string) (*models.Match, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// The row lock makes concurrent joiners queue up; only the first sees it waiting
	bet, err := uow.BetRepository().GetByIDForUpdate(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return nil, ErrBetNotFound
	}
	if bet.Status != models.BetStatusWaiting {
		return nil, ErrNotJoinable
	}
	if bet.CreatorID == userID {
		return nil, ErrSelfJoin
	}

	account, err := uow.AccountRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if !account.CanAfford(bet.Debit()) {
		return nil, insufficientFunds(account.Balance, bet.Debit())
	}

	now := s.now()
	match := models.NewMatch(uuid.NewString(),
		models.Player{UserID: bet.CreatorID, DisplayName: bet.CreatorName},
		models.Player{UserID: userID, DisplayName: displayName},
		bet.Amount, models.MatchSourceBet, now)

	if _, err := stakeWager(ctx, uow, userID, bet.Amount, bet.GameFee, models.RelatedTypeBet, bet.ID, models.FeeSourceBet); err != nil {
		return nil, err
	}

	if err := uow.MatchRepository().Create(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	bet.MarkMatched(userID, displayName, match.ID, now)
	updated, err := uow.BetRepository().MarkMatched(ctx, bet)
	if err != nil {
		return nil, fmt.Errorf("failed to mark bet matched: %w", err)
	}
	if !updated {
		return nil, ErrNotJoinable
	}

	uow.EventBus().Publish(events.WagerPlacedEvent{
		WagerKind: models.WagerKindBet,
		WagerID:   bet.ID,
		AccountID: userID,
		Amount:    bet.Amount,
		Fee:       bet.GameFee,
	})
	uow.EventBus().Publish(events.MatchCreatedEvent{
		MatchID:   match.ID,
		Player1ID: match.Player1.UserID,
		Player2ID: match.Player2.UserID,
		Stake:     match.BetAmount,
		Source:    match.Source,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"betID":   bet.ID,
		"matchID": match.ID,
		"joiner":  userID,
	}).Info("Bet joined")

	return match, nil
}

// CancelBet refunds stake+fee to the creator of a waiting bet
func (s *betService) CancelBet(ctx context.Context, betID, userID string) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bet, err := uow.BetRepository().GetByIDForUpdate(ctx, betID)
	if err != nil {
		return 0, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return 0, ErrBetNotFound
	}
	if bet.CreatorID != userID {
		return 0, ErrNotOwner
	}

	claim, err := claimForBet(bet)
	if err != nil {
		return 0, err
	}

	cancelled, err := uow.BetRepository().MarkCancelled(ctx, bet.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel bet: %w", err)
	}
	if !cancelled {
		return 0, ErrNotCancellable
	}

	result, err := issueRefunds(ctx, uow, claim, models.RefundReasonBetCancelled)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"betID":  bet.ID,
		"refund": result.Total,
	}).Info("Bet cancelled")

	return result.Total, nil
}

// GetBet returns a bet by id
func (s *betService) GetBet(ctx context.Context, betID string) (*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bet, err := uow.BetRepository().GetByID(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil {
		return nil, ErrBetNotFound
	}
	return bet, nil
}

// ListOpenBets returns waiting bets, oldest first
func (s *betService) ListOpenBets(ctx context.Context, limit int) ([]*models.Bet, error) {
	if limit <= 0 || limit > maxOpenBetsPage {
		limit = maxOpenBetsPage
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().ListWaiting(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list open bets: %w", err)
	}
	return bets, nil
}
