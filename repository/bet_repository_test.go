package repository

import (
	"context"
	"testing"
	"time"

	"rpsarena/models"
	"rpsarena/repository/testutil"
	"rpsarena/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBetRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	seedAccount(t, testDB, "alice", 5000)
	seedAccount(t, testDB, "bob", 5000)
	repo := NewBetRepository(testDB.DB)
	ctx := context.Background()

	bet := testutil.CreateTestBet("alice", 1000, 10)
	require.NoError(t, repo.Create(ctx, bet))

	t.Run("one waiting bet per creator", func(t *testing.T) {
		err := repo.Create(ctx, testutil.CreateTestBet("alice", 500, 10))
		assert.ErrorIs(t, err, service.ErrDuplicateWager)
	})

	t.Run("lookups", func(t *testing.T) {
		got, err := repo.GetByID(ctx, bet.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(1000), got.Amount)
		assert.Equal(t, models.BetStatusWaiting, got.Status)

		got, err = repo.GetByID(ctx, "not-a-uuid")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = repo.GetByID(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, got)

		waiting, err := repo.GetWaitingByCreator(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, waiting)
		assert.Equal(t, bet.ID, waiting.ID)

		open, err := repo.ListWaiting(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, open, 1)
	})

	t.Run("matched only once", func(t *testing.T) {
		bet.MarkMatched("bob", "bob", uuid.NewString(), time.Now())
		ok, err := repo.MarkMatched(ctx, bet)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.MarkMatched(ctx, bet)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.MarkCancelled(ctx, bet.ID)
		require.NoError(t, err)
		assert.False(t, ok, "a matched bet cannot be cancelled")

		matched, err := repo.ListMatched(ctx)
		require.NoError(t, err)
		require.Len(t, matched, 1)
		assert.Equal(t, *bet.GameID, *matched[0].GameID)
	})

	t.Run("cancel a waiting bet", func(t *testing.T) {
		other := testutil.CreateTestBet("bob", 200, 10)
		require.NoError(t, repo.Create(ctx, other))

		ok, err := repo.MarkCancelled(ctx, other.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BetStatusCancelled, got.Status)
		assert.NotNil(t, got.CancelledAt)
	})
}

func TestWaitingRoomRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	seedAccount(t, testDB, "alice", 5000)
	seedAccount(t, testDB, "bob", 5000)
	seedAccount(t, testDB, "carol", 5000)
	repo := NewWaitingRoomRepository(testDB.DB)
	ctx := context.Background()

	alice := testutil.CreateTestQueueEntry("alice", 500, 10)
	require.NoError(t, repo.Create(ctx, alice))
	bob := testutil.CreateTestQueueEntry("bob", 500, 10)
	require.NoError(t, repo.Create(ctx, bob))

	t.Run("one waiting entry per user", func(t *testing.T) {
		err := repo.Create(ctx, testutil.CreateTestQueueEntry("alice", 1000, 10))
		assert.ErrorIs(t, err, service.ErrAlreadyQueued)
	})

	t.Run("claims the oldest other player", func(t *testing.T) {
		claimed, err := repo.ClaimOpponent(ctx, 500, "carol")
		require.NoError(t, err)
		require.NotNil(t, claimed)
		assert.Equal(t, "alice", claimed.UserID)

		claimed, err = repo.ClaimOpponent(ctx, 500, "alice")
		require.NoError(t, err)
		require.NotNil(t, claimed)
		assert.Equal(t, "bob", claimed.UserID)

		claimed, err = repo.ClaimOpponent(ctx, 1000, "carol")
		require.NoError(t, err)
		assert.Nil(t, claimed)
	})

	t.Run("locked rows are skipped", func(t *testing.T) {
		tx, err := testDB.DB.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		held, err := newWaitingRoomRepositoryWithTx(tx).ClaimOpponent(ctx, 500, "carol")
		require.NoError(t, err)
		require.Equal(t, "alice", held.UserID)

		next, err := repo.ClaimOpponent(ctx, 500, "carol")
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, "bob", next.UserID)
	})

	t.Run("matched entries cannot be deleted", func(t *testing.T) {
		gameID := uuid.NewString()
		ok, err := repo.MarkMatched(ctx, alice.ID, gameID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.DeleteWaiting(ctx, alice.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		matched, err := repo.ListMatched(ctx)
		require.NoError(t, err)
		require.Len(t, matched, 1)
		assert.Equal(t, gameID, *matched[0].GameID)
	})

	t.Run("leave", func(t *testing.T) {
		entry, err := repo.GetWaitingByUser(ctx, "bob")
		require.NoError(t, err)
		require.NotNil(t, entry)

		ok, err := repo.DeleteWaiting(ctx, entry.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		entry, err = repo.GetWaitingByUser(ctx, "bob")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})
}
