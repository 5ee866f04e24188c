package service

import (
	"time"

	"rpsarena/models"

	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// newTestUoW returns a unit of work whose transaction calls always succeed and a
// factory that hands it out on every Create
func newTestUoW() (*MockUnitOfWork, *MockUnitOfWorkFactory) {
	uow := NewMockUnitOfWork()
	uow.On("Begin", mock.Anything).Return(nil)
	uow.On("Commit").Return(nil)
	uow.On("Rollback").Return(nil)

	factory := new(MockUnitOfWorkFactory)
	factory.On("Create").Return(uow)
	return uow, factory
}

// ledgerEntry matches an appended entry by account, kind and balance movement
func ledgerEntry(accountID string, kind models.LedgerKind, amount, fee, before, after int64) interface{} {
	return mock.MatchedBy(func(e *models.LedgerEntry) bool {
		return e.AccountID == accountID &&
			e.Kind == kind &&
			e.Amount == amount &&
			e.Fee == fee &&
			e.BalanceBefore == before &&
			e.BalanceAfter == after
	})
}

// assignEntryID plays the database filling in the appended entry's id
func assignEntryID(id int64) func(mock.Arguments) {
	return func(args mock.Arguments) {
		args.Get(1).(*models.LedgerEntry).ID = id
	}
}

func testAccount(id string, balance int64) *models.Account {
	return &models.Account{ID: id, DisplayName: id, Balance: balance, InitialBalance: 0}
}

func testMatch(stake int64) *models.Match {
	return models.NewMatch("match-1",
		models.Player{UserID: "alice", DisplayName: "Alice"},
		models.Player{UserID: "bob", DisplayName: "Bob"},
		stake, models.MatchSourceBet, testNow)
}

func choicePtr(c models.Choice) *models.Choice {
	return &c
}
