package events

import (
	"context"
	"sync"

	"rpsarena/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeLedgerEntryRecorded EventType = "ledger_entry_recorded"
	EventTypeWagerPlaced         EventType = "wager_placed"
	EventTypeMatchCreated        EventType = "match_created"
	EventTypeMatchDrawn          EventType = "match_drawn"
	EventTypeMatchResolved       EventType = "match_resolved"
	EventTypeMatchCancelled      EventType = "match_cancelled"
	EventTypeWagerRefunded       EventType = "wager_refunded"
	EventTypeRepairCompleted     EventType = "repair_completed"
)

// AllEventTypes lists every event the core emits
var AllEventTypes = []EventType{
	EventTypeLedgerEntryRecorded,
	EventTypeWagerPlaced,
	EventTypeMatchCreated,
	EventTypeMatchDrawn,
	EventTypeMatchResolved,
	EventTypeMatchCancelled,
	EventTypeWagerRefunded,
	EventTypeRepairCompleted,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// LedgerEntryRecordedEvent is emitted for every balance movement
type LedgerEntryRecordedEvent struct {
	EntryID       int64             `json:"entryId"`
	AccountID     string            `json:"accountId"`
	Kind          models.LedgerKind `json:"kind"`
	Amount        int64             `json:"amount"`
	Fee           int64             `json:"fee"`
	BalanceBefore int64             `json:"balanceBefore"`
	BalanceAfter  int64             `json:"balanceAfter"`
}

func (e LedgerEntryRecordedEvent) Type() EventType {
	return EventTypeLedgerEntryRecorded
}

// WagerPlacedEvent is emitted when a stake is debited for a bet or a queue entry
type WagerPlacedEvent struct {
	WagerKind models.WagerKind `json:"wagerKind"`
	WagerID   string           `json:"wagerId"`
	AccountID string           `json:"accountId"`
	Amount    int64            `json:"amount"`
	Fee       int64            `json:"fee"`
}

func (e WagerPlacedEvent) Type() EventType {
	return EventTypeWagerPlaced
}

// MatchCreatedEvent is emitted when two debited stakes are paired
type MatchCreatedEvent struct {
	MatchID   string             `json:"matchId"`
	Player1ID string             `json:"player1Id"`
	Player2ID string             `json:"player2Id"`
	Stake     int64              `json:"stake"`
	Source    models.MatchSource `json:"source"`
}

func (e MatchCreatedEvent) Type() EventType {
	return EventTypeMatchCreated
}

// MatchDrawnEvent is emitted when both players showed the same hand
type MatchDrawnEvent struct {
	MatchID string `json:"matchId"`
	Round   int    `json:"round"`
}

func (e MatchDrawnEvent) Type() EventType {
	return EventTypeMatchDrawn
}

// MatchResolvedEvent is emitted once the winner has been paid
type MatchResolvedEvent struct {
	MatchID  string `json:"matchId"`
	WinnerID string `json:"winnerId"`
	LoserID  string `json:"loserId"`
	Stake    int64  `json:"stake"`
	Payout   int64  `json:"payout"`
	Rounds   int    `json:"rounds"`
}

func (e MatchResolvedEvent) Type() EventType {
	return EventTypeMatchResolved
}

// MatchCancelledEvent is emitted when a live match is cancelled and both stakes returned
type MatchCancelledEvent struct {
	MatchID     string              `json:"matchId"`
	CancelledBy string              `json:"cancelledBy"`
	Reason      models.RefundReason `json:"reason"`
	Stake       int64               `json:"stake"`
	IdleFor     string              `json:"idleFor,omitempty"`
}

func (e MatchCancelledEvent) Type() EventType {
	return EventTypeMatchCancelled
}

// WagerRefundedEvent is emitted for each party refunded by the refund orchestrator
type WagerRefundedEvent struct {
	WagerKind models.WagerKind    `json:"wagerKind"`
	WagerID   string              `json:"wagerId"`
	AccountID string              `json:"accountId"`
	Amount    int64               `json:"amount"`
	Reason    models.RefundReason `json:"reason"`
}

func (e WagerRefundedEvent) Type() EventType {
	return EventTypeWagerRefunded
}

// RepairCompletedEvent is emitted after an administrative repair pass
type RepairCompletedEvent struct {
	Report *models.RepairReport `json:"report"`
}

func (e RepairCompletedEvent) Type() EventType {
	return EventTypeRepairCompleted
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	inFlight sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds handler for every event type the core emits
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Handlers run asynchronously so a slow consumer never holds up a request
	for i, handler := range handlers {
		b.inFlight.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.inFlight.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Wait blocks until every handler started by Emit has returned, or ctx ends.
// Short-lived commands call it before exiting so notifications are not lost.
func (b *Bus) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Pending returns the events stashed so far
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events to the event bus")

	// Handlers outlive the request, so they get a fresh context
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
