package service

import (
	"context"
	"testing"

	"rpsarena/config"
	"rpsarena/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_GetOrCreateAccount_OpensOnFirstVisit(t *testing.T) {
	ctx := context.Background()
	uow, factory := newTestUoW()
	cfg := config.NewTestConfig()
	cfg.StartingBalance = 5000
	svc := NewAccountService(factory, cfg)

	uow.Accounts.On("GetByID", ctx, "alice").Return(nil, nil)
	uow.Accounts.On("Create", ctx, "alice", "Alice", int64(5000)).Return(testAccount("alice", 5000), nil)

	account, err := svc.GetOrCreateAccount(ctx, "alice", "Alice")

	require.NoError(t, err)
	assert.Equal(t, int64(5000), account.Balance)
	uow.AssertCalled(t, "Commit")
	uow.AssertRepositories(t)
}

func TestAccountService_GetOrCreateAccount_ReturnsExisting(t *testing.T) {
	ctx := context.Background()
	uow, factory := newTestUoW()
	svc := NewAccountService(factory, config.NewTestConfig())

	uow.Accounts.On("GetByID", ctx, "alice").Return(testAccount("alice", 1200), nil)

	account, err := svc.GetOrCreateAccount(ctx, "alice", "Alice")

	require.NoError(t, err)
	assert.Equal(t, int64(1200), account.Balance)
	uow.Accounts.AssertNotCalled(t, "Create", ctx, "alice", "Alice", int64(0))
}

func TestAccountService_GetAccount_NotFound(t *testing.T) {
	ctx := context.Background()
	uow, factory := newTestUoW()
	svc := NewAccountService(factory, config.NewTestConfig())

	uow.Accounts.On("GetByID", ctx, "ghost").Return(nil, nil)

	_, err := svc.GetAccount(ctx, "ghost")

	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountService_AuditLedger(t *testing.T) {
	tests := []struct {
		name           string
		balance        int64
		delta          int64
		wantConsistent bool
	}{
		{name: "ledger explains balance", balance: 5990, delta: 5990, wantConsistent: true},
		{name: "balance drifted", balance: 6000, delta: 5990, wantConsistent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			uow, factory := newTestUoW()
			svc := NewAccountService(factory, config.NewTestConfig())

			uow.Accounts.On("GetByIDForUpdate", ctx, "alice").Return(testAccount("alice", tt.balance), nil)
			uow.Ledger.On("SumSignedEffects", ctx, "alice").Return(tt.delta, 4, nil)

			audit, err := svc.AuditLedger(ctx, "alice")

			require.NoError(t, err)
			assert.Equal(t, tt.wantConsistent, audit.Consistent)
			assert.Equal(t, 4, audit.EntryCount)
		})
	}
}

func TestAccountService_GetLedger_CapsLimit(t *testing.T) {
	ctx := context.Background()
	uow, factory := newTestUoW()
	svc := NewAccountService(factory, config.NewTestConfig())

	uow.Ledger.On("ListByAccount", ctx, "alice", maxLedgerPage).Return([]*models.LedgerEntry{}, nil)

	_, err := svc.GetLedger(ctx, "alice", 0)

	require.NoError(t, err)
	uow.AssertRepositories(t)
}

func TestStatsService_GetPlayerStats_DefaultsToZero(t *testing.T) {
	ctx := context.Background()
	uow, factory := newTestUoW()
	svc := NewStatsService(factory)

	uow.Stats.On("GetByAccount", ctx, "newbie").Return(nil, nil)

	stats, err := svc.GetPlayerStats(ctx, "newbie")

	require.NoError(t, err)
	assert.Equal(t, "newbie", stats.AccountID)
	assert.Zero(t, stats.GamesPlayed)
}

func TestStatsService_GetLeaderboard_DefaultLimit(t *testing.T) {
	ctx := context.Background()
	uow, factory := newTestUoW()
	svc := NewStatsService(factory)

	uow.Stats.On("Leaderboard", ctx, 10).Return([]*models.PlayerStats{{AccountID: "alice", Wins: 3}}, nil)

	entries, err := svc.GetLeaderboard(ctx, -1)

	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
