package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"rpsarena/config"
	"rpsarena/events"
	"rpsarena/models"

	log "github.com/sirupsen/logrus"
)

const drawResetTimeout = 10 * time.Second

type matchService struct {
	uowFactory   UnitOfWorkFactory
	config       *config.Config
	now          Clock
	schedule     Scheduler
	randomChoice func() models.Choice
}

// NewMatchService creates a new match lifecycle service
func NewMatchService(uowFactory UnitOfWorkFactory, cfg *config.Config) MatchService {
	return &matchService{
		uowFactory:   uowFactory,
		config:       cfg,
		now:          systemClock,
		schedule:     afterFunc,
		randomChoice: randomChoice,
	}
}

// randomChoice picks the hand played for a player whose timer ran out.
// Fairness is not a goal here; the hand only has to be one of the three.
func randomChoice() models.Choice {
	return models.AllChoices[rand.IntN(len(models.AllChoices))]
}

// GetMatch returns a match as seen by userID
func (s *matchService) GetMatch(ctx context.Context, matchID, userID string) (*models.Match, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}
	if !match.IsParticipant(userID) {
		return nil, ErrNotAParticipant
	}
	return match.ViewFor(userID), nil
}

// SubmitChoice records the caller's hand for the current round. The second hand of a
// round decides it: a draw starts the reset timer, a win pays the winner.
func (s *matchService) SubmitChoice(ctx context.Context, matchID, userID string, choice models.Choice) (*models.ChoiceResult, error) {
	if !choice.IsValid() {
		return nil, ErrInvalidChoice
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByIDForUpdate(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}

	switch match.Status {
	case models.MatchStatusResolved:
		return nil, ErrAlreadyResolved
	case models.MatchStatusCancelled:
		return nil, ErrMatchCancelled
	}

	self, opponent := match.PlayerFor(userID)
	if self == nil {
		return nil, ErrNotAParticipant
	}

	now := s.now()
	if match.Status == models.MatchStatusDraw {
		// The reset task may be late or lost; a due reset is applied here instead
		if !match.DrawResetDue(now, s.config.DrawResetDelay) {
			return nil, ErrRoundResetting
		}
		match.ResetRound(now)
	}

	if self.HasChosen() {
		return nil, ErrChoiceAlreadySubmitted
	}
	self.Choice = &choice
	match.UpdatedAt = now

	if opponent.HasChosen() {
		match.ApplyOutcome(models.Resolve(*match.Player1.Choice, *match.Player2.Choice), now)
	}

	if err := uow.MatchRepository().Update(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	switch match.Status {
	case models.MatchStatusResolved:
		if err := s.settle(ctx, uow, match); err != nil {
			return nil, err
		}
	case models.MatchStatusDraw:
		uow.EventBus().Publish(events.MatchDrawnEvent{
			MatchID: match.ID,
			Round:   match.Round,
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"matchID": match.ID,
		"userID":  userID,
		"round":   match.Round,
		"status":  match.Status,
	}).Info("Choice submitted")

	if match.Status == models.MatchStatusDraw {
		s.scheduleReset(match.ID, match.Round)
	}

	return models.ResultFor(match), nil
}

// settle pays a resolved match: the winner gets both stakes, the loser gets an
// informational loss entry, and both players' stats move
func (s *matchService) settle(ctx context.Context, uow UnitOfWork, match *models.Match) error {
	winnerID := *match.WinnerID
	loserID := match.LoserID()
	payout := match.BetAmount * 2

	if _, err := credit(ctx, uow, posting{
		AccountID:   winnerID,
		Kind:        models.LedgerKindWin,
		Amount:      payout,
		RelatedType: models.RelatedTypeMatch,
		RelatedID:   match.ID,
	}); err != nil {
		return fmt.Errorf("failed to pay winner: %w", err)
	}

	if _, err := note(ctx, uow, posting{
		AccountID:   loserID,
		Kind:        models.LedgerKindLoss,
		Amount:      match.BetAmount,
		RelatedType: models.RelatedTypeMatch,
		RelatedID:   match.ID,
	}); err != nil {
		return fmt.Errorf("failed to record loss: %w", err)
	}

	if err := uow.StatsRepository().RecordResult(ctx, winnerID, loserID, match.BetAmount); err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}

	uow.EventBus().Publish(events.MatchResolvedEvent{
		MatchID:  match.ID,
		WinnerID: winnerID,
		LoserID:  loserID,
		Stake:    match.BetAmount,
		Payout:   payout,
		Rounds:   match.Round,
	})
	return nil
}

func (s *matchService) scheduleReset(matchID string, round int) {
	s.schedule(s.config.DrawResetDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), drawResetTimeout)
		defer cancel()

		if err := s.resetDrawnRound(ctx, matchID, round); err != nil {
			log.WithFields(log.Fields{
				"matchID": matchID,
				"round":   round,
				"error":   err,
			}).Warn("Draw reset failed, next submission will reset the round")
		}
	})
}

// resetDrawnRound reopens choosing for a match still drawn on round. Matches that
// disappeared or moved on are left alone.
func (s *matchService) resetDrawnRound(ctx context.Context, matchID string, round int) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	reset, err := uow.MatchRepository().ResetDrawnRound(ctx, matchID, round, s.now())
	if err != nil {
		return fmt.Errorf("failed to reset round: %w", err)
	}
	if !reset {
		log.WithFields(log.Fields{
			"matchID": matchID,
			"round":   round,
		}).Debug("Draw reset skipped, game already moved on")
		return nil
	}

	return uow.Commit()
}

// HandleTimeout plays a random hand for a caller whose choice timer ran out. A caller
// who already chose, or a finished match, just gets the current state.
func (s *matchService) HandleTimeout(ctx context.Context, matchID, userID string) (*models.ChoiceResult, error) {
	match, err := s.GetMatch(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}
	if match.IsTerminal() {
		return models.ResultFor(match), nil
	}
	if self, _ := match.PlayerFor(userID); match.Status == models.MatchStatusChoosing && self.HasChosen() {
		return models.ResultFor(match), nil
	}

	choice := s.randomChoice()
	result, err := s.SubmitChoice(ctx, matchID, userID, choice)
	switch {
	case err == nil:
		log.WithFields(log.Fields{
			"matchID": matchID,
			"userID":  userID,
			"choice":  choice,
		}).Info("Choice timer expired, played fallback hand")
		return result, nil
	case errors.Is(err, ErrChoiceAlreadySubmitted),
		errors.Is(err, ErrAlreadyResolved),
		errors.Is(err, ErrMatchCancelled),
		errors.Is(err, ErrRoundResetting):
		// Lost a race with the opponent or the reset timer
		current, getErr := s.GetMatch(ctx, matchID, userID)
		if getErr != nil {
			return nil, getErr
		}
		return models.ResultFor(current), nil
	default:
		return nil, err
	}
}

// CancelStaleGame lets a participant cancel a match whose round has been idle for at
// least the choice timeout. Both players get their stake back.
func (s *matchService) CancelStaleGame(ctx context.Context, matchID, userID string) ([]string, error) {
	match, err := s.GetMatch(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}
	if match.IsTerminal() {
		return []string{}, nil
	}

	now := s.now()
	if !match.IsStale(now, s.config.ChoiceTimeout) {
		return nil, ErrMatchNotStale
	}

	idleBefore := now.Add(-s.config.ChoiceTimeout)
	cancelled, _, err := cancelAndRefundMatch(ctx, s.uowFactory, matchID, userID, models.RefundReasonPlayerCancelled, &idleBefore, now)
	if err != nil {
		return nil, err
	}
	if cancelled == nil {
		return []string{}, nil
	}
	return []string{cancelled.ID}, nil
}

// CancelActiveGamesForUser cancels every live match of the user and refunds both
// players of each. Calling it again finds nothing to cancel.
func (s *matchService) CancelActiveGamesForUser(ctx context.Context, userID string) ([]string, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	matches, err := uow.MatchRepository().ListActiveByPlayer(ctx, userID)
	uow.Rollback()
	if err != nil {
		return nil, fmt.Errorf("failed to list active games: %w", err)
	}

	now := s.now()
	cancelledIDs := []string{}
	for _, match := range matches {
		cancelled, _, err := cancelAndRefundMatch(ctx, s.uowFactory, match.ID, userID, models.RefundReasonPlayerCancelled, nil, now)
		if err != nil {
			return cancelledIDs, fmt.Errorf("failed to cancel game %s: %w", match.ID, err)
		}
		if cancelled != nil {
			cancelledIDs = append(cancelledIDs, cancelled.ID)
		}
	}

	return cancelledIDs, nil
}
