package cmd

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"rpsarena/config"
	"rpsarena/events"
	"rpsarena/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterNotifier(t *testing.T) {
	t.Run("no webhook configured", func(t *testing.T) {
		app := &application{cfg: config.NewTestConfig(), bus: events.NewBus()}
		require.NoError(t, app.registerNotifier())
	})

	t.Run("malformed webhook URL", func(t *testing.T) {
		cfg := config.NewTestConfig()
		cfg.DiscordWebhookURL = "https://discord.com/api/not-a-webhook"
		app := &application{cfg: cfg, bus: events.NewBus()}

		assert.ErrorContains(t, app.registerNotifier(), "invalid discord webhook URL")
	})

	t.Run("valid webhook URL", func(t *testing.T) {
		cfg := config.NewTestConfig()
		cfg.DiscordWebhookURL = "https://discord.com/api/webhooks/123/abc"
		app := &application{cfg: cfg, bus: events.NewBus()}

		require.NoError(t, app.registerNotifier())
	})
}

func TestDrainEventsWaitsForHandlers(t *testing.T) {
	bus := events.NewBus()
	app := &application{cfg: config.NewTestConfig(), bus: bus}

	var delivered atomic.Bool
	bus.Subscribe(events.EventTypeRepairCompleted, func(ctx context.Context, event events.Event) {
		time.Sleep(50 * time.Millisecond)
		delivered.Store(true)
	})

	bus.Emit(context.Background(), events.RepairCompletedEvent{Report: &models.RepairReport{}})
	app.drainEvents()

	assert.True(t, delivered.Load(), "report handler finished before the command exits")
}
