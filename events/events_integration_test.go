package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"rpsarena/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDeliveryAfterFlush(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	received := make(chan MatchResolvedEvent, 1)
	mainBus.Subscribe(EventTypeMatchResolved, func(ctx context.Context, event Event) {
		resolved, ok := event.(MatchResolvedEvent)
		if !ok {
			t.Errorf("expected MatchResolvedEvent, got %T", event)
			return
		}
		received <- resolved
	})

	testEvent := MatchResolvedEvent{
		MatchID:  "m1",
		WinnerID: "alice",
		LoserID:  "bob",
		Stake:    1000,
		Payout:   2000,
		Rounds:   1,
	}
	transactionalBus.Publish(testEvent)

	select {
	case <-received:
		t.Fatal("event must not be delivered before flush")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, transactionalBus.Flush(context.Background()))

	select {
	case got := <-received:
		assert.Equal(t, testEvent, got)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not received within timeout")
	}
	assert.Empty(t, transactionalBus.Pending())
}

func TestDiscardDropsPendingEvents(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var calls int
	var mu sync.Mutex
	mainBus.Subscribe(EventTypeWagerRefunded, func(ctx context.Context, event Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	transactionalBus.Publish(WagerRefundedEvent{WagerKind: models.WagerKindBet, WagerID: "b1", AccountID: "alice", Amount: 1010})
	transactionalBus.Discard()
	require.NoError(t, transactionalBus.Flush(context.Background()))

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, calls)
}

func TestSubscribeAllReceivesEveryType(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(3)
	seen := make(chan EventType, 3)
	bus.SubscribeAll(func(ctx context.Context, event Event) {
		defer wg.Done()
		seen <- event.Type()
	})

	bus.Emit(context.Background(), MatchCreatedEvent{MatchID: "m1"})
	bus.Emit(context.Background(), MatchDrawnEvent{MatchID: "m1", Round: 2})
	bus.Emit(context.Background(), MatchCancelledEvent{MatchID: "m1", Reason: models.RefundReasonStaleSweep})
	wg.Wait()
	close(seen)

	var types []EventType
	for et := range seen {
		types = append(types, et)
	}
	assert.ElementsMatch(t, []EventType{EventTypeMatchCreated, EventTypeMatchDrawn, EventTypeMatchCancelled}, types)
}

func TestPanickingHandlerDoesNotAffectOthers(t *testing.T) {
	bus := NewBus()

	done := make(chan struct{})
	bus.Subscribe(EventTypeMatchDrawn, func(ctx context.Context, event Event) {
		panic("boom")
	})
	bus.Subscribe(EventTypeMatchDrawn, func(ctx context.Context, event Event) {
		close(done)
	})

	bus.Emit(context.Background(), MatchDrawnEvent{MatchID: "m1", Round: 2})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler was not called")
	}
}

func TestWaitBlocksUntilHandlersReturn(t *testing.T) {
	bus := NewBus()

	release := make(chan struct{})
	var finished bool
	var mu sync.Mutex
	bus.Subscribe(EventTypeRepairCompleted, func(ctx context.Context, event Event) {
		<-release
		mu.Lock()
		finished = true
		mu.Unlock()
	})

	bus.Emit(context.Background(), RepairCompletedEvent{Report: &models.RepairReport{}})

	shortCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Wait(shortCtx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, bus.Wait(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, finished)
}
