package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rpsarena/api"
	"rpsarena/config"
	"rpsarena/database"
	"rpsarena/events"
	"rpsarena/infrastructure"
	"rpsarena/infrastructure/observability"
	"rpsarena/repository"
	"rpsarena/service"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// stakeLockTTL bounds how long a crashed process can hold a stake tier
const stakeLockTTL = 5 * time.Second

// eventDrainTimeout bounds how long shutdown waits for event handlers such as webhook posts
const eventDrainTimeout = 5 * time.Second

// application holds every long-lived component so Run and the admin commands share the wiring
type application struct {
	cfg      *config.Config
	db       *database.DB
	bus      *events.Bus
	redis    *redis.Client
	services api.Services
	sweeper  *service.StaleMatchSweeper
}

// configureLogging applies the configured level and format to logrus
func configureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// newApplication connects to storage and builds the services
func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, database.ConstructDatabaseURL(cfg.DatabaseURL, cfg.DatabaseName))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	app := &application{cfg: cfg, db: db, bus: eventBus}

	var (
		locker     service.StakeLocker
		lease      service.SweepLease
		references service.PaymentReferenceStore
	)
	if cfg.RedisURL != "" {
		client, err := infrastructure.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, err
		}
		app.redis = client
		locker = infrastructure.NewRedisStakeLocker(client, stakeLockTTL)
		lease = infrastructure.NewRedisSweepLease(client)
		references = infrastructure.NewRedisPaymentReferenceStore(client)
	} else {
		log.Warn("REDIS_URL not set, running single-replica with in-memory payment references")
		references = infrastructure.NewMemoryPaymentReferenceStore()
	}

	app.sweeper = service.NewStaleMatchSweeper(uowFactory, cfg, lease)
	app.services = api.Services{
		Accounts:    service.NewAccountService(uowFactory, cfg),
		Bets:        service.NewBetService(uowFactory, cfg),
		Matchmaking: service.NewMatchmakingService(uowFactory, cfg, locker),
		Matches:     service.NewMatchService(uowFactory, cfg),
		Payments:    service.NewPaymentService(uowFactory, references, cfg),
		Stats:       service.NewStatsService(uowFactory),
		Repair:      service.NewRepairService(uowFactory),
		Sweeper:     app.sweeper,
	}
	log.Info("Services initialized successfully")

	return app, nil
}

// registerNotifier subscribes the Discord notifier when a webhook is configured
func (a *application) registerNotifier() error {
	if a.cfg.DiscordWebhookURL == "" {
		return nil
	}
	notifier, err := infrastructure.NewDiscordNotifier(a.cfg.DiscordWebhookURL)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord notifier: %w", err)
	}
	notifier.Register(a.bus)
	log.Info("Discord notifications enabled")
	return nil
}

// drainEvents waits for event handlers still delivering, up to eventDrainTimeout
func (a *application) drainEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), eventDrainTimeout)
	defer cancel()
	if err := a.bus.Wait(ctx); err != nil {
		log.WithError(err).Warn("Gave up waiting for event handlers")
	}
}

func (a *application) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.WithError(err).Warn("Error closing Redis client")
		}
	}
	log.Info("Closing database connection...")
	a.db.Close()
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	configureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting rpsarena...")

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	metricsProvider := observability.NewMetricsProvider(cfg)
	if err := metricsProvider.Initialize(ctx); err != nil {
		log.WithError(err).Warn("Failed to initialize metrics, continuing without them")
	} else {
		metricsProvider.Register(app.bus)
	}

	var natsClient *infrastructure.NATSClient
	if cfg.NATSServers != "" {
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return err
		}
		infrastructure.NewNATSEventForwarder(natsClient).Register(app.bus)
	}

	if err := app.registerNotifier(); err != nil {
		return err
	}

	router, err := api.NewRouter(cfg, app.services)
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopSweeper := app.sweeper.Start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	log.Info("Shutting down...")
	stopSweeper()

	// Give in-flight requests time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	app.sweeper.ReleaseLease(shutdownCtx)
	app.drainEvents()
	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.WithError(err).Warn("Error closing NATS connection")
		}
	}
	if err := metricsProvider.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return runErr
}
