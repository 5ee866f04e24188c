package service

import (
	"context"
	"sync"
	"time"

	"rpsarena/events"
	"rpsarena/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, id, displayName string, initialBalance int64) (*models.Account, error) {
	args := m.Called(ctx, id, displayName, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) AddBalance(ctx context.Context, id string, amount int64) (int64, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) DeductBalance(ctx context.Context, id string, amount int64) (int64, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(int64), args.Error(1)
}

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	args := m.Called(ctx, reference)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) SumSignedEffects(ctx context.Context, accountID string) (int64, int, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Int(1), args.Error(2)
}

// MockFeeRepository is a mock implementation of FeeRepository
type MockFeeRepository struct {
	mock.Mock
}

func (m *MockFeeRepository) Record(ctx context.Context, fee *models.FeeEntry) error {
	args := m.Called(ctx, fee)
	return args.Error(0)
}

func (m *MockFeeRepository) TotalCollected(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) Create(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) GetByID(ctx context.Context, id string) (*models.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) GetWaitingByCreator(ctx context.Context, creatorID string) (*models.Bet, error) {
	args := m.Called(ctx, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) ListWaiting(ctx context.Context, limit int) ([]*models.Bet, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) ListMatched(ctx context.Context) ([]*models.Bet, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) MarkMatched(ctx context.Context, bet *models.Bet) (bool, error) {
	args := m.Called(ctx, bet)
	return args.Bool(0), args.Error(1)
}

func (m *MockBetRepository) MarkCancelled(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockWaitingRoomRepository is a mock implementation of WaitingRoomRepository
type MockWaitingRoomRepository struct {
	mock.Mock
}

func (m *MockWaitingRoomRepository) Create(ctx context.Context, entry *models.WaitingRoomEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockWaitingRoomRepository) GetWaitingByUser(ctx context.Context, userID string) (*models.WaitingRoomEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WaitingRoomEntry), args.Error(1)
}

func (m *MockWaitingRoomRepository) ClaimOpponent(ctx context.Context, stake int64, excludeUserID string) (*models.WaitingRoomEntry, error) {
	args := m.Called(ctx, stake, excludeUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WaitingRoomEntry), args.Error(1)
}

func (m *MockWaitingRoomRepository) MarkMatched(ctx context.Context, id, gameID string) (bool, error) {
	args := m.Called(ctx, id, gameID)
	return args.Bool(0), args.Error(1)
}

func (m *MockWaitingRoomRepository) DeleteWaiting(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockWaitingRoomRepository) ListMatched(ctx context.Context) ([]*models.WaitingRoomEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WaitingRoomEntry), args.Error(1)
}

// MockMatchRepository is a mock implementation of MatchRepository
type MockMatchRepository struct {
	mock.Mock
}

func (m *MockMatchRepository) Create(ctx context.Context, match *models.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchRepository) Update(ctx context.Context, match *models.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepository) ListActive(ctx context.Context) ([]*models.Match, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Match), args.Error(1)
}

func (m *MockMatchRepository) ListActiveByPlayer(ctx context.Context, userID string) ([]*models.Match, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Match), args.Error(1)
}

func (m *MockMatchRepository) CancelIfActive(ctx context.Context, id, cancelledBy string, reason models.RefundReason, idleBefore *time.Time) (*models.Match, error) {
	args := m.Called(ctx, id, cancelledBy, reason, idleBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchRepository) ResetDrawnRound(ctx context.Context, id string, round int, now time.Time) (bool, error) {
	args := m.Called(ctx, id, round, now)
	return args.Bool(0), args.Error(1)
}

// MockRefundReceiptRepository is a mock implementation of RefundReceiptRepository
type MockRefundReceiptRepository struct {
	mock.Mock
}

func (m *MockRefundReceiptRepository) Claim(ctx context.Context, receipt *models.RefundReceipt) (bool, error) {
	args := m.Called(ctx, receipt)
	return args.Bool(0), args.Error(1)
}

func (m *MockRefundReceiptRepository) AttachLedgerEntry(ctx context.Context, receipt *models.RefundReceipt, entryID int64) error {
	args := m.Called(ctx, receipt, entryID)
	return args.Error(0)
}

func (m *MockRefundReceiptRepository) ListByWager(ctx context.Context, kind models.WagerKind, wagerID string) ([]*models.RefundReceipt, error) {
	args := m.Called(ctx, kind, wagerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RefundReceipt), args.Error(1)
}

// MockStatsRepository is a mock implementation of StatsRepository
type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) RecordResult(ctx context.Context, winnerID, loserID string, stake int64) error {
	args := m.Called(ctx, winnerID, loserID, stake)
	return args.Error(0)
}

func (m *MockStatsRepository) GetByAccount(ctx context.Context, accountID string) (*models.PlayerStats, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlayerStats), args.Error(1)
}

func (m *MockStatsRepository) Leaderboard(ctx context.Context, limit int) ([]*models.PlayerStats, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PlayerStats), args.Error(1)
}

// MockEventPublisher records every published event
type MockEventPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Published returns the events of type t in publish order
func (m *MockEventPublisher) Published(t events.EventType) []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []events.Event
	for _, e := range m.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Begin, Commit and Rollback
// go through testify; the repositories are plain fields so tests can set expectations
// on them directly.
type MockUnitOfWork struct {
	mock.Mock
	Accounts       *MockAccountRepository
	Ledger         *MockLedgerRepository
	Fees           *MockFeeRepository
	Bets           *MockBetRepository
	WaitingRoom    *MockWaitingRoomRepository
	Matches        *MockMatchRepository
	RefundReceipts *MockRefundReceiptRepository
	Stats          *MockStatsRepository
	Events         *MockEventPublisher
}

// NewMockUnitOfWork returns a unit of work with a fresh mock for every repository
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		Accounts:       new(MockAccountRepository),
		Ledger:         new(MockLedgerRepository),
		Fees:           new(MockFeeRepository),
		Bets:           new(MockBetRepository),
		WaitingRoom:    new(MockWaitingRoomRepository),
		Matches:        new(MockMatchRepository),
		RefundReceipts: new(MockRefundReceiptRepository),
		Stats:          new(MockStatsRepository),
		Events:         new(MockEventPublisher),
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository {
	return m.Accounts
}

func (m *MockUnitOfWork) LedgerRepository() LedgerRepository {
	return m.Ledger
}

func (m *MockUnitOfWork) FeeRepository() FeeRepository {
	return m.Fees
}

func (m *MockUnitOfWork) BetRepository() BetRepository {
	return m.Bets
}

func (m *MockUnitOfWork) WaitingRoomRepository() WaitingRoomRepository {
	return m.WaitingRoom
}

func (m *MockUnitOfWork) MatchRepository() MatchRepository {
	return m.Matches
}

func (m *MockUnitOfWork) RefundReceiptRepository() RefundReceiptRepository {
	return m.RefundReceipts
}

func (m *MockUnitOfWork) StatsRepository() StatsRepository {
	return m.Stats
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.Events
}

// AssertRepositories checks the expectations of every repository mock
func (m *MockUnitOfWork) AssertRepositories(t mock.TestingT) {
	m.Accounts.AssertExpectations(t)
	m.Ledger.AssertExpectations(t)
	m.Fees.AssertExpectations(t)
	m.Bets.AssertExpectations(t)
	m.WaitingRoom.AssertExpectations(t)
	m.Matches.AssertExpectations(t)
	m.RefundReceipts.AssertExpectations(t)
	m.Stats.AssertExpectations(t)
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockStakeLocker is a mock implementation of StakeLocker
type MockStakeLocker struct {
	mock.Mock
}

func (m *MockStakeLocker) Lock(ctx context.Context, stake int64) (func(), error) {
	args := m.Called(ctx, stake)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

// MockSweepLease is a mock implementation of SweepLease
type MockSweepLease struct {
	mock.Mock
}

func (m *MockSweepLease) TryAcquire(ctx context.Context, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockSweepLease) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPaymentReferenceStore is a mock implementation of PaymentReferenceStore
type MockPaymentReferenceStore struct {
	mock.Mock
}

func (m *MockPaymentReferenceStore) Save(ctx context.Context, payment *models.PendingPayment, ttl time.Duration) error {
	args := m.Called(ctx, payment, ttl)
	return args.Error(0)
}

func (m *MockPaymentReferenceStore) Get(ctx context.Context, reference string) (*models.PendingPayment, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingPayment), args.Error(1)
}

func (m *MockPaymentReferenceStore) Delete(ctx context.Context, reference string) error {
	args := m.Called(ctx, reference)
	return args.Error(0)
}
