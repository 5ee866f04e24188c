package service_test

import (
	"context"
	"testing"

	"rpsarena/config"
	"rpsarena/events"
	"rpsarena/models"
	"rpsarena/repository"
	"rpsarena/repository/testutil"
	"rpsarena/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireBalance(t *testing.T, accounts service.AccountService, userID string, want int64) {
	t.Helper()
	account, err := accounts.GetAccount(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, want, account.Balance, "balance of %s", userID)

	audit, err := accounts.AuditLedger(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, audit.Consistent, "ledger of %s does not explain its balance", userID)
}

func repairItemFor(report *models.RepairReport, wagerID string) *models.RepairItem {
	for _, item := range report.Items {
		if item.WagerID == wagerID {
			return item
		}
	}
	return nil
}

func TestArena_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	cfg := config.NewTestConfig()
	// Every live match counts as stale so the sweep can be exercised without waiting
	cfg.StaleThreshold = 0

	uowFactory := repository.NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	accounts := service.NewAccountService(uowFactory, cfg)
	payments := service.NewPaymentService(uowFactory, nil, cfg)
	bets := service.NewBetService(uowFactory, cfg)
	matchmaking := service.NewMatchmakingService(uowFactory, cfg, nil)
	matches := service.NewMatchService(uowFactory, cfg)
	sweeper := service.NewStaleMatchSweeper(uowFactory, cfg, nil)
	repair := service.NewRepairService(uowFactory)
	stats := service.NewStatsService(uowFactory)

	for _, user := range []string{"alice", "bob", "carol", "dave"} {
		result, err := payments.CreditAccount(ctx, user, 5000, "seed-"+user)
		require.NoError(t, err)
		require.True(t, result.Credited)
	}

	t.Run("bet resolves and pays the winner", func(t *testing.T) {
		bet, err := bets.CreateBet(ctx, "alice", "Alice", 1000)
		require.NoError(t, err)
		requireBalance(t, accounts, "alice", 3990)

		match, err := bets.JoinBet(ctx, bet.ID, "bob", "Bob")
		require.NoError(t, err)
		requireBalance(t, accounts, "bob", 3990)

		result, err := matches.SubmitChoice(ctx, match.ID, "alice", models.ChoiceRock)
		require.NoError(t, err)
		assert.Equal(t, models.ChoiceStatusWaitingForOpponent, result.Status)

		result, err = matches.SubmitChoice(ctx, match.ID, "bob", models.ChoiceScissors)
		require.NoError(t, err)
		assert.Equal(t, models.ChoiceStatusResolved, result.Status)
		require.NotNil(t, result.WinnerID)
		assert.Equal(t, "alice", *result.WinnerID)

		requireBalance(t, accounts, "alice", 5990)
		requireBalance(t, accounts, "bob", 3990)

		aliceStats, err := stats.GetPlayerStats(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 1, aliceStats.Wins)
	})

	t.Run("payment reference is credited once", func(t *testing.T) {
		result, err := payments.CreditAccount(ctx, "bob", 5000, "seed-bob")
		require.NoError(t, err)
		assert.False(t, result.Credited)
		requireBalance(t, accounts, "bob", 3990)
	})

	var queuedGame string
	t.Run("matchmaking pairs and the sweep refunds stakes", func(t *testing.T) {
		first, err := matchmaking.JoinWaitingRoom(ctx, "alice", "Alice", 500)
		require.NoError(t, err)
		assert.False(t, first.Matched)

		second, err := matchmaking.JoinWaitingRoom(ctx, "bob", "Bob", 500)
		require.NoError(t, err)
		require.True(t, second.Matched)
		queuedGame = *second.GameID

		requireBalance(t, accounts, "alice", 5480)
		requireBalance(t, accounts, "bob", 3480)

		report, err := sweeper.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{queuedGame}, report.Cancelled)

		requireBalance(t, accounts, "alice", 5980)
		requireBalance(t, accounts, "bob", 3980)

		again, err := sweeper.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Empty(t, again.Cancelled)
		requireBalance(t, accounts, "alice", 5980)
	})

	t.Run("leaving the queue refunds stake and fee", func(t *testing.T) {
		_, err := matchmaking.JoinWaitingRoom(ctx, "carol", "Carol", 200)
		require.NoError(t, err)
		requireBalance(t, accounts, "carol", 4790)

		left, err := matchmaking.LeaveWaitingRoom(ctx, "carol")
		require.NoError(t, err)
		assert.True(t, left)
		requireBalance(t, accounts, "carol", 5000)

		left, err = matchmaking.LeaveWaitingRoom(ctx, "carol")
		require.NoError(t, err)
		assert.False(t, left)
	})

	t.Run("repair refunds a bet whose game is gone", func(t *testing.T) {
		bet, err := bets.CreateBet(ctx, "carol", "Carol", 1000)
		require.NoError(t, err)

		// dave pays as if he had joined, but the game row never landed
		uow := uowFactory.Create()
		require.NoError(t, uow.Begin(ctx))
		after, err := uow.AccountRepository().DeductBalance(ctx, "dave", 1010)
		require.NoError(t, err)
		entry := &models.LedgerEntry{AccountID: "dave", Kind: models.LedgerKindBet, Amount: 1000, Fee: 10, BalanceBefore: after + 1010, BalanceAfter: after}
		require.NoError(t, uow.LedgerRepository().Append(ctx, entry))
		bet.MarkMatched("dave", "Dave", uuid.NewString(), bet.CreatedAt)
		ok, err := uow.BetRepository().MarkMatched(ctx, bet)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, uow.Commit())

		requireBalance(t, accounts, "carol", 3990)
		requireBalance(t, accounts, "dave", 3990)

		dryRun, err := repair.RepairStuckWagers(ctx, true)
		require.NoError(t, err)
		item := repairItemFor(dryRun, bet.ID)
		require.NotNil(t, item)
		assert.Equal(t, models.RepairActionWouldRefund, item.Action)
		assert.Equal(t, int64(2000), item.Refunded)
		requireBalance(t, accounts, "carol", 3990)

		report, err := repair.RepairStuckWagers(ctx, false)
		require.NoError(t, err)
		item = repairItemFor(report, bet.ID)
		require.NotNil(t, item)
		assert.Equal(t, models.RepairActionRefundedOrphan, item.Action)
		assert.Equal(t, int64(2000), report.Refunded)

		requireBalance(t, accounts, "carol", 4990)
		requireBalance(t, accounts, "dave", 4990)

		rerun, err := repair.RepairStuckWagers(ctx, false)
		require.NoError(t, err)
		assert.Zero(t, rerun.Refunded)
		requireBalance(t, accounts, "carol", 4990)
	})

	t.Run("cancelled queue game is left alone by repair", func(t *testing.T) {
		match, err := matches.GetMatch(ctx, queuedGame, "alice")
		require.NoError(t, err)
		assert.Equal(t, models.MatchStatusCancelled, match.Status)
		requireBalance(t, accounts, "alice", 5980)
	})
}
