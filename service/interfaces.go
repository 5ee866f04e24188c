package service

import (
	"context"
	"time"

	"rpsarena/events"
	"rpsarena/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByID retrieves an account, nil if it does not exist
	GetByID(ctx context.Context, id string) (*models.Account, error)

	// GetByIDForUpdate retrieves an account and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id string) (*models.Account, error)

	// Create opens a new account with the initial balance
	Create(ctx context.Context, id, displayName string, initialBalance int64) (*models.Account, error)

	// AddBalance credits the account atomically and returns the new balance
	AddBalance(ctx context.Context, id string, amount int64) (int64, error)

	// DeductBalance debits the account atomically, failing with ErrInsufficientFunds
	// instead of going negative, and returns the new balance
	DeductBalance(ctx context.Context, id string, amount int64) (int64, error)
}

// LedgerRepository defines the interface for the append-only ledger
type LedgerRepository interface {
	// Append writes a new immutable entry and fills in its ID and CreatedAt
	Append(ctx context.Context, entry *models.LedgerEntry) error

	// ListByAccount returns the newest entries of an account first
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*models.LedgerEntry, error)

	// ExistsByReference reports whether a payment reference was already booked
	ExistsByReference(ctx context.Context, reference string) (bool, error)

	// SumSignedEffects returns the summed balance effect and count of an account's entries
	SumSignedEffects(ctx context.Context, accountID string) (int64, int, error)
}

// FeeRepository defines the interface for the diagnostic fee log
type FeeRepository interface {
	// Record logs a collected fee
	Record(ctx context.Context, fee *models.FeeEntry) error

	// TotalCollected sums every fee ever logged
	TotalCollected(ctx context.Context) (int64, error)
}

// BetRepository defines the interface for public bet data access
type BetRepository interface {
	// Create inserts a new bet
	Create(ctx context.Context, bet *models.Bet) error

	// GetByID retrieves a bet, nil if it does not exist
	GetByID(ctx context.Context, id string) (*models.Bet, error)

	// GetByIDForUpdate retrieves a bet and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id string) (*models.Bet, error)

	// GetWaitingByCreator returns the creator's waiting bet, if any
	GetWaitingByCreator(ctx context.Context, creatorID string) (*models.Bet, error)

	// ListWaiting returns open bets, oldest first
	ListWaiting(ctx context.Context, limit int) ([]*models.Bet, error)

	// ListMatched returns every matched bet
	ListMatched(ctx context.Context) ([]*models.Bet, error)

	// MarkMatched moves a waiting bet to matched; false if it was no longer waiting
	MarkMatched(ctx context.Context, bet *models.Bet) (bool, error)

	// MarkCancelled moves a waiting bet to cancelled; false if it was no longer waiting
	MarkCancelled(ctx context.Context, id string) (bool, error)
}

// WaitingRoomRepository defines the interface for the matchmaking queue
type WaitingRoomRepository interface {
	// Create inserts an entry; a second waiting entry for the same user fails with ErrAlreadyQueued
	Create(ctx context.Context, entry *models.WaitingRoomEntry) error

	// GetWaitingByUser returns and locks the user's waiting entry, if any
	GetWaitingByUser(ctx context.Context, userID string) (*models.WaitingRoomEntry, error)

	// ClaimOpponent locks the oldest waiting entry at stake that does not belong to
	// excludeUserID, skipping rows other transactions already hold
	ClaimOpponent(ctx context.Context, stake int64, excludeUserID string) (*models.WaitingRoomEntry, error)

	// MarkMatched links a waiting entry to its match; false if it was no longer waiting
	MarkMatched(ctx context.Context, id, gameID string) (bool, error)

	// DeleteWaiting removes a waiting entry; false if it was no longer waiting
	DeleteWaiting(ctx context.Context, id string) (bool, error)

	// ListMatched returns every matched entry
	ListMatched(ctx context.Context) ([]*models.WaitingRoomEntry, error)
}

// MatchRepository defines the interface for match data access
type MatchRepository interface {
	// Create inserts a new match
	Create(ctx context.Context, match *models.Match) error

	// GetByID retrieves a match, nil if it does not exist
	GetByID(ctx context.Context, id string) (*models.Match, error)

	// GetByIDForUpdate retrieves a match and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id string) (*models.Match, error)

	// Update writes the mutable round state of a match
	Update(ctx context.Context, match *models.Match) error

	// ListActive returns every match in choosing or draw
	ListActive(ctx context.Context) ([]*models.Match, error)

	// ListActiveByPlayer returns the user's matches in choosing or draw
	ListActiveByPlayer(ctx context.Context, userID string) ([]*models.Match, error)

	// CancelIfActive cancels the match only if it is still choosing or draw and, when
	// idleBefore is set, its last activity is not after idleBefore. Returns nil when the
	// guard did not hold.
	CancelIfActive(ctx context.Context, id, cancelledBy string, reason models.RefundReason, idleBefore *time.Time) (*models.Match, error)

	// ResetDrawnRound reopens choosing if the match is still drawn on round; false otherwise
	ResetDrawnRound(ctx context.Context, id string, round int, now time.Time) (bool, error)
}

// RefundReceiptRepository defines the interface for refund idempotency records
type RefundReceiptRepository interface {
	// Claim inserts the receipt; false if the party was already refunded for this wager
	Claim(ctx context.Context, receipt *models.RefundReceipt) (bool, error)

	// AttachLedgerEntry links a claimed receipt to the refund's ledger entry
	AttachLedgerEntry(ctx context.Context, receipt *models.RefundReceipt, entryID int64) error

	// ListByWager returns every receipt issued for a wager
	ListByWager(ctx context.Context, kind models.WagerKind, wagerID string) ([]*models.RefundReceipt, error)
}

// StatsRepository defines the interface for player statistics
type StatsRepository interface {
	// RecordResult counts a resolved match for both players
	RecordResult(ctx context.Context, winnerID, loserID string, stake int64) error

	// GetByAccount returns a player's statistics, nil if they never finished a match
	GetByAccount(ctx context.Context, accountID string) (*models.PlayerStats, error)

	// Leaderboard returns the players with the most wins
	Leaderboard(ctx context.Context, limit int) ([]*models.PlayerStats, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork manages one database transaction and the repositories bound to it
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	AccountRepository() AccountRepository
	LedgerRepository() LedgerRepository
	FeeRepository() FeeRepository
	BetRepository() BetRepository
	WaitingRoomRepository() WaitingRoomRepository
	MatchRepository() MatchRepository
	RefundReceiptRepository() RefundReceiptRepository
	StatsRepository() StatsRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates new UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// StakeLocker serialises matchmaking joins at the same stake
type StakeLocker interface {
	// Lock blocks until the stake tier is held or ctx ends, and returns its release
	Lock(ctx context.Context, stake int64) (func(), error)
}

// SweepLease lets one process at a time run the staleness sweep
type SweepLease interface {
	// TryAcquire takes the lease for ttl; false if another process holds it
	TryAcquire(ctx context.Context, ttl time.Duration) (bool, error)

	// Release gives the lease up if this process holds it
	Release(ctx context.Context) error
}

// PaymentReferenceStore keeps pending recharges until the gateway calls back
type PaymentReferenceStore interface {
	Save(ctx context.Context, payment *models.PendingPayment, ttl time.Duration) error
	// Get returns nil when the reference is unknown or expired
	Get(ctx context.Context, reference string) (*models.PendingPayment, error)
	Delete(ctx context.Context, reference string) error
}

// AccountService defines the interface for account and ledger reads
type AccountService interface {
	// GetOrCreateAccount returns the caller's account, opening it on first use
	GetOrCreateAccount(ctx context.Context, userID, displayName string) (*models.Account, error)

	// GetAccount returns an account or ErrAccountNotFound
	GetAccount(ctx context.Context, userID string) (*models.Account, error)

	// GetLedger returns the newest ledger entries of an account
	GetLedger(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error)

	// AuditLedger checks that the ledger explains the account's balance
	AuditLedger(ctx context.Context, userID string) (*models.LedgerAudit, error)
}

// BetService defines the interface for the public bet flow
type BetService interface {
	CreateBet(ctx context.Context, userID, displayName string, amount int64) (*models.Bet, error)
	JoinBet(ctx context.Context, betID, userID, displayName string) (*models.Match, error)
	CancelBet(ctx context.Context, betID, userID string) (int64, error)
	GetBet(ctx context.Context, betID string) (*models.Bet, error)
	ListOpenBets(ctx context.Context, limit int) ([]*models.Bet, error)
}

// MatchmakingService defines the interface for the anonymous queue
type MatchmakingService interface {
	JoinWaitingRoom(ctx context.Context, userID, displayName string, stake int64) (*models.MatchmakingResult, error)
	LeaveWaitingRoom(ctx context.Context, userID string) (bool, error)
	QueueStatus(ctx context.Context, userID string) (*models.WaitingRoomEntry, error)
}

// MatchService defines the interface for the match lifecycle
type MatchService interface {
	GetMatch(ctx context.Context, matchID, userID string) (*models.Match, error)
	SubmitChoice(ctx context.Context, matchID, userID string, choice models.Choice) (*models.ChoiceResult, error)
	HandleTimeout(ctx context.Context, matchID, userID string) (*models.ChoiceResult, error)
	CancelStaleGame(ctx context.Context, matchID, userID string) ([]string, error)
	CancelActiveGamesForUser(ctx context.Context, userID string) ([]string, error)
}

// Sweeper defines the interface for the staleness sweep
type Sweeper interface {
	SweepOnce(ctx context.Context) (*models.SweepReport, error)
}

// RepairService defines the interface for the administrative stuck-wager repair
type RepairService interface {
	RepairStuckWagers(ctx context.Context, dryRun bool) (*models.RepairReport, error)
}

// PaymentService defines the interface for the payment gateway contract
type PaymentService interface {
	InitiateRecharge(ctx context.Context, userID string, amount int64) (*models.PendingPayment, error)
	HandleWebhook(ctx context.Context, reference string, status models.PaymentStatus) (*models.CreditResult, error)
	CreditAccount(ctx context.Context, userID string, amount int64, reference string) (*models.CreditResult, error)
	Withdraw(ctx context.Context, userID string, amount int64) (*models.LedgerEntry, error)
}

// StatsService defines the interface for player statistics
type StatsService interface {
	GetPlayerStats(ctx context.Context, userID string) (*models.PlayerStats, error)
	GetLeaderboard(ctx context.Context, limit int) ([]*models.PlayerStats, error)
}
