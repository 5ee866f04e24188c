package service_test

import (
	"context"
	"sync"
	"testing"

	"rpsarena/config"
	"rpsarena/events"
	"rpsarena/models"
	"rpsarena/repository"
	"rpsarena/repository/testutil"
	"rpsarena/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runTogether starts every call behind a shared barrier so they hit the database at
// the same time, and waits for all of them
func runTogether(calls ...func()) {
	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, call := range calls {
		wg.Add(1)
		go func(call func()) {
			defer wg.Done()
			<-start
			call()
		}(call)
	}
	close(start)
	wg.Wait()
}

func TestArena_ConcurrentAccess_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	cfg := config.NewTestConfig()
	uowFactory := repository.NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	accounts := service.NewAccountService(uowFactory, cfg)
	payments := service.NewPaymentService(uowFactory, nil, cfg)
	bets := service.NewBetService(uowFactory, cfg)
	matches := service.NewMatchService(uowFactory, cfg)

	for _, user := range []string{"alice", "bob", "carol", "dave"} {
		_, err := payments.CreditAccount(ctx, user, 10000, "seed-"+user)
		require.NoError(t, err)
	}

	t.Run("only one of several simultaneous joiners gets the bet", func(t *testing.T) {
		bet, err := bets.CreateBet(ctx, "alice", "Alice", 1000)
		require.NoError(t, err)

		joiners := []string{"bob", "carol", "dave"}
		results := make([]*models.Match, len(joiners))
		errs := make([]error, len(joiners))

		calls := make([]func(), len(joiners))
		for i, joiner := range joiners {
			calls[i] = func() {
				results[i], errs[i] = bets.JoinBet(ctx, bet.ID, joiner, joiner)
			}
		}
		runTogether(calls...)

		var winner string
		for i, joiner := range joiners {
			if errs[i] == nil {
				require.Empty(t, winner, "%s and %s both joined the same bet", winner, joiner)
				require.NotNil(t, results[i])
				winner = joiner
				continue
			}
			assert.ErrorIs(t, errs[i], service.ErrNotJoinable, "joiner %s", joiner)
		}
		require.NotEmpty(t, winner, "no joiner got the bet")

		stored, err := bets.GetBet(ctx, bet.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BetStatusMatched, stored.Status)
		require.NotNil(t, stored.OpponentID)
		assert.Equal(t, winner, *stored.OpponentID)

		// Only the successful joiner was charged
		for _, joiner := range joiners {
			want := int64(10000)
			if joiner == winner {
				want = 8990
			}
			requireBalance(t, accounts, joiner, want)
		}

		_, err = matches.CancelActiveGamesForUser(ctx, "alice")
		require.NoError(t, err)
	})

	t.Run("simultaneous choices never both wait for the opponent", func(t *testing.T) {
		bobAccount, err := accounts.GetAccount(ctx, "bob")
		require.NoError(t, err)
		bobStart := bobAccount.Balance

		for attempt := 0; attempt < 5; attempt++ {
			bet, err := bets.CreateBet(ctx, "alice", "Alice", 100)
			require.NoError(t, err)
			match, err := bets.JoinBet(ctx, bet.ID, "bob", "Bob")
			require.NoError(t, err)

			var aliceResult, bobResult *models.ChoiceResult
			var aliceErr, bobErr error
			runTogether(
				func() { aliceResult, aliceErr = matches.SubmitChoice(ctx, match.ID, "alice", models.ChoiceRock) },
				func() { bobResult, bobErr = matches.SubmitChoice(ctx, match.ID, "bob", models.ChoiceScissors) },
			)
			require.NoError(t, aliceErr)
			require.NoError(t, bobErr)

			statuses := []models.ChoiceStatus{aliceResult.Status, bobResult.Status}
			assert.ElementsMatch(t, []models.ChoiceStatus{
				models.ChoiceStatusWaitingForOpponent,
				models.ChoiceStatusResolved,
			}, statuses, "attempt %d", attempt)

			final, err := matches.GetMatch(ctx, match.ID, "alice")
			require.NoError(t, err)
			assert.Equal(t, models.MatchStatusResolved, final.Status)
			require.NotNil(t, final.WinnerID)
			assert.Equal(t, "alice", *final.WinnerID)
		}

		// Each attempt charges bob stake and fee exactly once
		audit, err := accounts.AuditLedger(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, audit.Consistent)
		requireBalance(t, accounts, "bob", bobStart-5*110)
	})
}
