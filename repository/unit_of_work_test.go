package repository

import (
	"context"
	"testing"
	"time"

	"rpsarena/events"
	"rpsarena/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	seedAccount(t, testDB, "alice", 1000)
	bus := events.NewBus()
	factory := NewUnitOfWorkFactory(testDB.DB, bus)
	ctx := context.Background()

	delivered := make(chan events.Event, 4)
	bus.Subscribe(events.EventTypeLedgerEntryRecorded, func(ctx context.Context, event events.Event) {
		delivered <- event
	})

	t.Run("repositories require Begin", func(t *testing.T) {
		uow := factory.Create()
		assert.Panics(t, func() { uow.AccountRepository() })
	})

	t.Run("rollback discards writes and events", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		_, err := uow.AccountRepository().AddBalance(ctx, "alice", 500)
		require.NoError(t, err)
		uow.EventBus().Publish(events.LedgerEntryRecordedEvent{AccountID: "alice"})
		require.NoError(t, uow.Rollback())
		require.NoError(t, uow.Rollback())

		account, err := NewAccountRepository(testDB.DB).GetByID(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(1000), account.Balance)

		select {
		case <-delivered:
			t.Fatal("rolled back event was delivered")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("commit persists and flushes", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		_, err := uow.AccountRepository().AddBalance(ctx, "alice", 500)
		require.NoError(t, err)
		uow.EventBus().Publish(events.LedgerEntryRecordedEvent{AccountID: "alice"})
		require.NoError(t, uow.Commit())
		require.NoError(t, uow.Rollback())

		account, err := NewAccountRepository(testDB.DB).GetByID(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(1500), account.Balance)

		select {
		case <-delivered:
		case <-time.After(2 * time.Second):
			t.Fatal("committed event was not delivered")
		}
	})
}
