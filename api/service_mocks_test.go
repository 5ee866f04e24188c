package api

import (
	"context"

	"rpsarena/models"

	"github.com/stretchr/testify/mock"
)

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetOrCreateAccount(ctx context.Context, userID, displayName string) (*models.Account, error) {
	args := m.Called(ctx, userID, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountService) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountService) GetLedger(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

func (m *MockAccountService) AuditLedger(ctx context.Context, userID string) (*models.LedgerAudit, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerAudit), args.Error(1)
}

type MockBetService struct {
	mock.Mock
}

func (m *MockBetService) CreateBet(ctx context.Context, userID, displayName string, amount int64) (*models.Bet, error) {
	args := m.Called(ctx, userID, displayName, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetService) JoinBet(ctx context.Context, betID, userID, displayName string) (*models.Match, error) {
	args := m.Called(ctx, betID, userID, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockBetService) CancelBet(ctx context.Context, betID, userID string) (int64, error) {
	args := m.Called(ctx, betID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBetService) GetBet(ctx context.Context, betID string) (*models.Bet, error) {
	args := m.Called(ctx, betID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetService) ListOpenBets(ctx context.Context, limit int) ([]*models.Bet, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

type MockMatchmakingService struct {
	mock.Mock
}

func (m *MockMatchmakingService) JoinWaitingRoom(ctx context.Context, userID, displayName string, stake int64) (*models.MatchmakingResult, error) {
	args := m.Called(ctx, userID, displayName, stake)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MatchmakingResult), args.Error(1)
}

func (m *MockMatchmakingService) LeaveWaitingRoom(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMatchmakingService) QueueStatus(ctx context.Context, userID string) (*models.WaitingRoomEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WaitingRoomEntry), args.Error(1)
}

type MockMatchService struct {
	mock.Mock
}

func (m *MockMatchService) GetMatch(ctx context.Context, matchID, userID string) (*models.Match, error) {
	args := m.Called(ctx, matchID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchService) SubmitChoice(ctx context.Context, matchID, userID string, choice models.Choice) (*models.ChoiceResult, error) {
	args := m.Called(ctx, matchID, userID, choice)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChoiceResult), args.Error(1)
}

func (m *MockMatchService) HandleTimeout(ctx context.Context, matchID, userID string) (*models.ChoiceResult, error) {
	args := m.Called(ctx, matchID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChoiceResult), args.Error(1)
}

func (m *MockMatchService) CancelStaleGame(ctx context.Context, matchID, userID string) ([]string, error) {
	args := m.Called(ctx, matchID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockMatchService) CancelActiveGamesForUser(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) InitiateRecharge(ctx context.Context, userID string, amount int64) (*models.PendingPayment, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingPayment), args.Error(1)
}

func (m *MockPaymentService) HandleWebhook(ctx context.Context, reference string, status models.PaymentStatus) (*models.CreditResult, error) {
	args := m.Called(ctx, reference, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CreditResult), args.Error(1)
}

func (m *MockPaymentService) CreditAccount(ctx context.Context, userID string, amount int64, reference string) (*models.CreditResult, error) {
	args := m.Called(ctx, userID, amount, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CreditResult), args.Error(1)
}

func (m *MockPaymentService) Withdraw(ctx context.Context, userID string, amount int64) (*models.LedgerEntry, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerEntry), args.Error(1)
}

type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) GetPlayerStats(ctx context.Context, userID string) (*models.PlayerStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlayerStats), args.Error(1)
}

func (m *MockStatsService) GetLeaderboard(ctx context.Context, limit int) ([]*models.PlayerStats, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PlayerStats), args.Error(1)
}

type MockRepairService struct {
	mock.Mock
}

func (m *MockRepairService) RepairStuckWagers(ctx context.Context, dryRun bool) (*models.RepairReport, error) {
	args := m.Called(ctx, dryRun)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RepairReport), args.Error(1)
}

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) SweepOnce(ctx context.Context) (*models.SweepReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SweepReport), args.Error(1)
}
