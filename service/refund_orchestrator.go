package service

import (
	"context"
	"fmt"
	"time"

	"rpsarena/events"
	"rpsarena/models"

	log "github.com/sirupsen/logrus"
)

// RefundClaim says who was debited for a wager and how much each of them is owed.
// Claims are only ever built from the wager's current status.
type RefundClaim struct {
	Kind    models.WagerKind
	WagerID string
	Stake   int64
	Fee     int64
	Parties []string
}

// AmountPerParty is stake+fee while only one side was charged, and the stake alone
// once a match exists (the fee is kept).
func (c RefundClaim) AmountPerParty() int64 {
	if c.Kind == models.WagerKindMatch {
		return c.Stake
	}
	return c.Stake + c.Fee
}

// Total is what the claim pays out if no party was refunded before
func (c RefundClaim) Total() int64 {
	return c.AmountPerParty() * int64(len(c.Parties))
}

func claimForBet(bet *models.Bet) (RefundClaim, error) {
	switch bet.Status {
	case models.BetStatusWaiting:
		return RefundClaim{
			Kind:    models.WagerKindBet,
			WagerID: bet.ID,
			Stake:   bet.Amount,
			Fee:     bet.GameFee,
			Parties: []string{bet.CreatorID},
		}, nil
	case models.BetStatusMatched:
		return RefundClaim{}, ErrAlreadyMatched
	default:
		return RefundClaim{}, ErrNotCancellable
	}
}

func claimForQueueEntry(entry *models.WaitingRoomEntry) (RefundClaim, error) {
	if entry.Status != models.QueueStatusWaiting {
		return RefundClaim{}, ErrAlreadyMatched
	}
	return RefundClaim{
		Kind:    models.WagerKindQueue,
		WagerID: entry.ID,
		Stake:   entry.BetAmount,
		Fee:     entry.GameFee,
		Parties: []string{entry.UserID},
	}, nil
}

func claimForMatch(match *models.Match) (RefundClaim, error) {
	switch match.Status {
	case models.MatchStatusCancelled:
		return claimForOrphanedMatch(match.ID, match.BetAmount, match.PlayerIDs()), nil
	case models.MatchStatusResolved:
		return RefundClaim{}, ErrAlreadyResolved
	default:
		return RefundClaim{}, fmt.Errorf("%w: game %s must be cancelled before refunding", ErrStateConflict, match.ID)
	}
}

// claimForOrphanedMatch covers wagers whose match record is gone. Both players were
// charged and a match had been created, so each gets the stake back. The claim is
// keyed on the match id so it collides with any later refund of the same match.
func claimForOrphanedMatch(gameID string, stake int64, parties []string) RefundClaim {
	return RefundClaim{
		Kind:    models.WagerKindMatch,
		WagerID: gameID,
		Stake:   stake,
		Parties: parties,
	}
}

func relatedTypeFor(kind models.WagerKind) models.RelatedType {
	switch kind {
	case models.WagerKindBet:
		return models.RelatedTypeBet
	case models.WagerKindQueue:
		return models.RelatedTypeQueueEntry
	default:
		return models.RelatedTypeMatch
	}
}

// issueRefunds pays every party of the claim exactly once. A receipt row is claimed
// before crediting, so a party that already has one is skipped.
func issueRefunds(ctx context.Context, uow UnitOfWork, claim RefundClaim, reason models.RefundReason) (*models.RefundResult, error) {
	amount := claim.AmountPerParty()
	result := &models.RefundResult{
		WagerKind: claim.Kind,
		WagerID:   claim.WagerID,
	}

	for _, accountID := range claim.Parties {
		receipt := &models.RefundReceipt{
			WagerKind: claim.Kind,
			WagerID:   claim.WagerID,
			AccountID: accountID,
			Amount:    amount,
			Reason:    reason,
		}
		claimed, err := uow.RefundReceiptRepository().Claim(ctx, receipt)
		if err != nil {
			return nil, fmt.Errorf("failed to claim refund receipt: %w", err)
		}
		if !claimed {
			log.WithFields(log.Fields{
				"wagerKind": claim.Kind,
				"wagerID":   claim.WagerID,
				"accountID": accountID,
			}).Info("Party already refunded for this wager, skipping")
			result.Skipped = append(result.Skipped, accountID)
			continue
		}

		entry, err := credit(ctx, uow, posting{
			AccountID:   accountID,
			Kind:        models.LedgerKindRefund,
			Amount:      amount,
			RelatedType: relatedTypeFor(claim.Kind),
			RelatedID:   claim.WagerID,
			Metadata:    map[string]any{"reason": string(reason)},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to refund %s: %w", accountID, err)
		}
		if err := uow.RefundReceiptRepository().AttachLedgerEntry(ctx, receipt, entry.ID); err != nil {
			return nil, fmt.Errorf("failed to link refund receipt: %w", err)
		}

		uow.EventBus().Publish(events.WagerRefundedEvent{
			WagerKind: claim.Kind,
			WagerID:   claim.WagerID,
			AccountID: accountID,
			Amount:    amount,
			Reason:    reason,
		})
		result.Refunded = append(result.Refunded, accountID)
		result.Total += amount
	}

	return result, nil
}

// cancelAndRefundMatch cancels a live match behind the status guard and refunds both
// players in the same transaction. A nil match means the guard did not hold: the match
// was already terminal, or showed activity after idleBefore.
func cancelAndRefundMatch(ctx context.Context, uowFactory UnitOfWorkFactory, matchID, cancelledBy string, reason models.RefundReason, idleBefore *time.Time, now time.Time) (*models.Match, *models.RefundResult, error) {
	uow := uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().CancelIfActive(ctx, matchID, cancelledBy, reason, idleBefore)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to cancel game: %w", err)
	}
	if match == nil {
		return nil, nil, nil
	}

	claim, err := claimForMatch(match)
	if err != nil {
		return nil, nil, err
	}
	result, err := issueRefunds(ctx, uow, claim, reason)
	if err != nil {
		return nil, nil, err
	}

	uow.EventBus().Publish(events.MatchCancelledEvent{
		MatchID:     match.ID,
		CancelledBy: cancelledBy,
		Reason:      reason,
		Stake:       match.BetAmount,
		IdleFor:     now.Sub(match.LastActivity()).Round(time.Second).String(),
	})

	if err := uow.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"matchID":  match.ID,
		"reason":   reason,
		"refunded": result.Refunded,
		"total":    result.Total,
	}).Info("Game cancelled and stakes refunded")

	return match, result, nil
}
