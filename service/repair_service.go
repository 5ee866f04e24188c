package service

import (
	"context"
	"fmt"
	"sort"

	"rpsarena/events"
	"rpsarena/models"

	log "github.com/sirupsen/logrus"
)

type repairService struct {
	uowFactory UnitOfWorkFactory
}

// NewRepairService creates a new administrative repair service
func NewRepairService(uowFactory UnitOfWorkFactory) RepairService {
	return &repairService{uowFactory: uowFactory}
}

// pairedWager is a matched bet, or the matched queue entries of one game
type pairedWager struct {
	kind    models.WagerKind
	wagerID string
	gameID  string
	stake   int64
	parties []string
}

// RepairStuckWagers looks at every matched wager and decides from the current state of
// its game whether money is still owed. Missing games are refunded to both players.
// With dryRun set nothing is written.
func (s *repairService) RepairStuckWagers(ctx context.Context, dryRun bool) (*models.RepairReport, error) {
	wagers, err := s.loadPairedWagers(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.RepairReport{
		DryRun:  dryRun,
		Scanned: len(wagers),
		Items:   []*models.RepairItem{},
	}

	for _, wager := range wagers {
		item := &models.RepairItem{
			WagerKind: wager.kind,
			WagerID:   wager.wagerID,
			GameID:    wager.gameID,
		}
		if err := s.repairWager(ctx, wager, item, dryRun); err != nil {
			log.WithFields(log.Fields{
				"wagerKind": wager.kind,
				"wagerID":   wager.wagerID,
				"gameID":    wager.gameID,
				"error":     err,
			}).Error("Failed to repair wager")
			item.Action = models.RepairActionFailed
			item.Error = err.Error()
		}
		report.Refunded += item.Refunded
		report.Items = append(report.Items, item)
	}

	if !dryRun {
		if err := s.publishReport(ctx, report); err != nil {
			log.WithError(err).Warn("Failed to publish repair report")
		}
	}

	log.WithFields(log.Fields{
		"dryRun":   dryRun,
		"scanned":  report.Scanned,
		"refunded": report.Refunded,
	}).Info("Wager repair completed")

	return report, nil
}

func (s *repairService) loadPairedWagers(ctx context.Context) ([]pairedWager, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().ListMatched(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list matched bets: %w", err)
	}
	entries, err := uow.WaitingRoomRepository().ListMatched(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list matched queue entries: %w", err)
	}

	var wagers []pairedWager
	for _, bet := range bets {
		if bet.GameID == nil || bet.OpponentID == nil {
			log.WithFields(log.Fields{
				"betID":     bet.ID,
				"integrity": true,
			}).Warn("Matched bet has no game or opponent")
			continue
		}
		wagers = append(wagers, pairedWager{
			kind:    models.WagerKindBet,
			wagerID: bet.ID,
			gameID:  *bet.GameID,
			stake:   bet.Amount,
			parties: []string{bet.CreatorID, *bet.OpponentID},
		})
	}

	// Both queue entries of a game point at it; they are repaired as one wager
	byGame := make(map[string]*pairedWager)
	for _, entry := range entries {
		if entry.GameID == nil {
			log.WithFields(log.Fields{
				"entryID":   entry.ID,
				"integrity": true,
			}).Warn("Matched queue entry has no game")
			continue
		}
		group, ok := byGame[*entry.GameID]
		if !ok {
			group = &pairedWager{
				kind:    models.WagerKindQueue,
				wagerID: entry.ID,
				gameID:  *entry.GameID,
				stake:   entry.BetAmount,
			}
			byGame[*entry.GameID] = group
		}
		group.parties = append(group.parties, entry.UserID)
	}
	gameIDs := make([]string, 0, len(byGame))
	for gameID := range byGame {
		gameIDs = append(gameIDs, gameID)
	}
	sort.Strings(gameIDs)
	for _, gameID := range gameIDs {
		wagers = append(wagers, *byGame[gameID])
	}

	return wagers, nil
}

// repairWager fills in item for one wager. Refunds use the game's refund claim, so a
// game already refunded by any path pays nothing here.
func (s *repairService) repairWager(ctx context.Context, wager pairedWager, item *models.RepairItem, dryRun bool) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByIDForUpdate(ctx, wager.gameID)
	if err != nil {
		return fmt.Errorf("failed to get game: %w", err)
	}

	var claim RefundClaim
	action := models.RepairActionRefundedOrphan
	switch {
	case match == nil:
		log.WithFields(log.Fields{
			"wagerKind": wager.kind,
			"wagerID":   wager.wagerID,
			"gameID":    wager.gameID,
			"integrity": true,
		}).Warn("Matched wager points at a missing game")
		claim = claimForOrphanedMatch(wager.gameID, wager.stake, wager.parties)
	case match.IsActive():
		item.Action = models.RepairActionLeftToSweep
		return nil
	case match.Status == models.MatchStatusCancelled:
		// Cancelling and refunding share a transaction, but older rows may predate that
		claim, err = claimForMatch(match)
		if err != nil {
			return fmt.Errorf("failed to build refund claim: %w", err)
		}
		action = models.RepairActionCompletedRefund
	default:
		item.Action = models.RepairActionNone
		return nil
	}

	if dryRun {
		owed, err := s.outstanding(ctx, uow, claim)
		if err != nil {
			return err
		}
		item.Action = models.RepairActionNone
		if owed > 0 {
			item.Action = models.RepairActionWouldRefund
			item.Refunded = owed
		}
		return nil
	}

	result, err := issueRefunds(ctx, uow, claim, models.RefundReasonAdminRepair)
	if err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	item.Action = models.RepairActionNone
	if result.Total > 0 {
		item.Action = action
		item.Refunded = result.Total
	}
	return nil
}

// outstanding is what issueRefunds would pay for claim right now
func (s *repairService) outstanding(ctx context.Context, uow UnitOfWork, claim RefundClaim) (int64, error) {
	receipts, err := uow.RefundReceiptRepository().ListByWager(ctx, claim.Kind, claim.WagerID)
	if err != nil {
		return 0, fmt.Errorf("failed to list refund receipts: %w", err)
	}
	refunded := make(map[string]bool, len(receipts))
	for _, receipt := range receipts {
		refunded[receipt.AccountID] = true
	}

	var owed int64
	for _, accountID := range claim.Parties {
		if !refunded[accountID] {
			owed += claim.AmountPerParty()
		}
	}
	return owed, nil
}

func (s *repairService) publishReport(ctx context.Context, report *models.RepairReport) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	uow.EventBus().Publish(events.RepairCompletedEvent{Report: report})
	return uow.Commit()
}
