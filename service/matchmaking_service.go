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

type matchmakingService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
	locker     StakeLocker
	now        Clock
}

// NewMatchmakingService creates a new matchmaking service. locker may be nil, in which
// case two players joining the same empty stake tier at the same instant can both end
// up waiting instead of being paired; each is then paired with the next arrival.
func NewMatchmakingService(uowFactory UnitOfWorkFactory, cfg *config.Config, locker StakeLocker) MatchmakingService {
	return &matchmakingService{
		uowFactory: uowFactory,
		config:     cfg,
		locker:     locker,
		now:        systemClock,
	}
}

// JoinWaitingRoom debits the stake and pairs the caller with a waiting player at the
// same stake, or queues them
func (s *matchmakingService) JoinWaitingRoom(ctx context.Context, userID, displayName string, stake int64) (*models.MatchmakingResult, error) {
	if stake < s.config.MinBet {
		return nil, fmt.Errorf("%w (minimum %d)", ErrBelowMinimum, s.config.MinBet)
	}
	if !s.config.IsStakeTier(stake) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStake, stake)
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, stake)
		if err != nil {
			return nil, fmt.Errorf("failed to lock stake tier %d: %w", stake, err)
		}
		defer unlock()
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
	if !account.CanAfford(stake + fee) {
		return nil, insufficientFunds(account.Balance, stake+fee)
	}

	existing, err := uow.WaitingRoomRepository().GetWaitingByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check queue: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyQueued
	}

	entry := &models.WaitingRoomEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		DisplayName: displayName,
		BetAmount:   stake,
		GameFee:     fee,
		Status:      models.QueueStatusWaiting,
	}

	if _, err := stakeWager(ctx, uow, userID, stake, fee, models.RelatedTypeQueueEntry, entry.ID, models.FeeSourceMatchmaking); err != nil {
		return nil, err
	}
	uow.EventBus().Publish(events.WagerPlacedEvent{
		WagerKind: models.WagerKindQueue,
		WagerID:   entry.ID,
		AccountID: userID,
		Amount:    stake,
		Fee:       fee,
	})

	candidate, err := uow.WaitingRoomRepository().ClaimOpponent(ctx, stake, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look for an opponent: %w", err)
	}

	result := &models.MatchmakingResult{}
	if candidate == nil {
		if err := uow.WaitingRoomRepository().Create(ctx, entry); err != nil {
			return nil, err
		}
	} else {
		match := models.NewMatch(uuid.NewString(),
			models.Player{UserID: candidate.UserID, DisplayName: candidate.DisplayName},
			models.Player{UserID: userID, DisplayName: displayName},
			stake, models.MatchSourceMatchmaking, s.now())

		if err := uow.MatchRepository().Create(ctx, match); err != nil {
			return nil, fmt.Errorf("failed to create game: %w", err)
		}

		matched, err := uow.WaitingRoomRepository().MarkMatched(ctx, candidate.ID, match.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to mark opponent matched: %w", err)
		}
		if !matched {
			return nil, fmt.Errorf("%w: opponent left the queue", ErrStateConflict)
		}

		entry.Status = models.QueueStatusMatched
		entry.GameID = &match.ID
		if err := uow.WaitingRoomRepository().Create(ctx, entry); err != nil {
			return nil, err
		}

		uow.EventBus().Publish(events.MatchCreatedEvent{
			MatchID:   match.ID,
			Player1ID: match.Player1.UserID,
			Player2ID: match.Player2.UserID,
			Stake:     stake,
			Source:    match.Source,
		})
		result.GameID = &match.ID
		result.Matched = true
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":  userID,
		"stake":   stake,
		"matched": result.Matched,
	}).Info("Joined matchmaking")

	return result, nil
}

// LeaveWaitingRoom refunds stake+fee for the caller's waiting entry and removes it.
// A caller with nothing waiting gets false and nothing happens.
func (s *matchmakingService) LeaveWaitingRoom(ctx context.Context, userID string) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entry, err := uow.WaitingRoomRepository().GetWaitingByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get queue entry: %w", err)
	}
	if entry == nil {
		return false, nil
	}

	claim, err := claimForQueueEntry(entry)
	if err != nil {
		return false, err
	}

	deleted, err := uow.WaitingRoomRepository().DeleteWaiting(ctx, entry.ID)
	if err != nil {
		return false, fmt.Errorf("failed to remove queue entry: %w", err)
	}
	if !deleted {
		// Paired by another transaction in the meantime; the match owns the stake now
		return false, nil
	}

	result, err := issueRefunds(ctx, uow, claim, models.RefundReasonQueueLeft)
	if err != nil {
		return false, err
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID": userID,
		"refund": result.Total,
	}).Info("Left matchmaking")

	return len(result.Refunded) > 0, nil
}

// QueueStatus returns the caller's waiting entry, nil if they are not queued
func (s *matchmakingService) QueueStatus(ctx context.Context, userID string) (*models.WaitingRoomEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entry, err := uow.WaitingRoomRepository().GetWaitingByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}
	return entry, nil
}
