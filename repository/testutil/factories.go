package testutil

import (
	"time"

	"rpsarena/models"

	"github.com/google/uuid"
)

// CreateTestBet creates a waiting bet for creatorID
func CreateTestBet(creatorID string, amount, fee int64) *models.Bet {
	now := time.Now()
	return &models.Bet{
		ID:          uuid.NewString(),
		CreatorID:   creatorID,
		CreatorName: creatorID,
		Amount:      amount,
		GameFee:     fee,
		Status:      models.BetStatusWaiting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CreateTestQueueEntry creates a waiting matchmaking entry for userID
func CreateTestQueueEntry(userID string, stake, fee int64) *models.WaitingRoomEntry {
	now := time.Now()
	return &models.WaitingRoomEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		DisplayName: userID,
		BetAmount:   stake,
		GameFee:     fee,
		Status:      models.QueueStatusWaiting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CreateTestMatch creates a fresh match between two players
func CreateTestMatch(player1, player2 string, stake int64, at time.Time) *models.Match {
	return models.NewMatch(
		uuid.NewString(),
		models.Player{UserID: player1, DisplayName: player1},
		models.Player{UserID: player2, DisplayName: player2},
		stake,
		models.MatchSourceBet,
		at,
	)
}

// CreateTestLedgerEntry creates a ledger entry that moved an account from before to after
func CreateTestLedgerEntry(accountID string, kind models.LedgerKind, amount, fee, before, after int64) *models.LedgerEntry {
	return &models.LedgerEntry{
		AccountID:     accountID,
		Kind:          kind,
		Amount:        amount,
		Fee:           fee,
		BalanceBefore: before,
		BalanceAfter:  after,
	}
}
