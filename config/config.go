package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Optional infrastructure, disabled when empty
	RedisURL          string
	NATSServers       string
	DiscordWebhookURL string

	// HTTP configuration
	HTTPAddr             string
	AdminToken           string
	PaymentWebhookSecret string

	// Wager configuration (minor currency units)
	MinBet          int64
	GameFee         int64
	WithdrawalFee   int64
	StakeTiers      []int64
	StartingBalance int64

	// Match timing
	ChoiceTimeout  time.Duration
	DrawResetDelay time.Duration
	SweepInterval  time.Duration
	StaleThreshold time.Duration

	// Payments
	PaymentReferenceTTL time.Duration

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int
	OTelServiceName          string

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables, reading a .env file first if present
func load() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		RedisURL:          os.Getenv("REDIS_URL"),
		NATSServers:       os.Getenv("NATS_SERVERS"),
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),

		HTTPAddr:             getEnvWithDefault("HTTP_ADDR", ":8080"),
		AdminToken:           os.Getenv("ADMIN_TOKEN"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),

		MinBet:          getEnvInt64("MIN_BET", 100),
		GameFee:         getEnvInt64("GAME_FEE", 10),
		WithdrawalFee:   getEnvInt64("WITHDRAWAL_FEE", 0),
		StartingBalance: getEnvInt64("STARTING_BALANCE", 0),

		ChoiceTimeout:  getEnvDuration("CHOICE_TIMEOUT", 30*time.Second),
		DrawResetDelay: getEnvDuration("DRAW_RESET_DELAY", 2*time.Second),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", 30*time.Second),
		StaleThreshold: getEnvDuration("STALE_THRESHOLD", 2*time.Minute),

		PaymentReferenceTTL: getEnvDuration("PAYMENT_REFERENCE_TTL", 24*time.Hour),

		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "localhost:4317"),
		OTelExportIntervalMillis: int(getEnvInt64("OTEL_EXPORT_INTERVAL_MS", 15000)),
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "rpsarena"),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	tiers, err := parseStakeTiers(getEnvWithDefault("STAKE_TIERS", "100,200,500,1000,2000,5000,10000"))
	if err != nil {
		return nil, err
	}
	config.StakeTiers = tiers

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.MinBet <= 0 {
		return fmt.Errorf("MIN_BET must be positive")
	}
	if c.GameFee < 0 || c.WithdrawalFee < 0 {
		return fmt.Errorf("fees cannot be negative")
	}
	if c.StaleThreshold <= c.ChoiceTimeout {
		return fmt.Errorf("STALE_THRESHOLD (%s) must be longer than CHOICE_TIMEOUT (%s)", c.StaleThreshold, c.ChoiceTimeout)
	}
	for _, tier := range c.StakeTiers {
		if tier < c.MinBet {
			return fmt.Errorf("stake tier %d is below MIN_BET %d", tier, c.MinBet)
		}
	}

	if c.Environment == "test" {
		return nil
	}

	// Validate required configuration
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.AdminToken == "" {
		return fmt.Errorf("ADMIN_TOKEN is required")
	}
	if c.PaymentWebhookSecret == "" {
		return fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required")
	}
	return nil
}

// IsStakeTier reports whether stake is one of the configured matchmaking tiers.
// An empty tier list accepts any stake.
func (c *Config) IsStakeTier(stake int64) bool {
	if len(c.StakeTiers) == 0 {
		return true
	}
	for _, tier := range c.StakeTiers {
		if tier == stake {
			return true
		}
	}
	return false
}

func parseStakeTiers(raw string) ([]int64, error) {
	var tiers []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tier, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid STAKE_TIERS entry %q: %w", part, err)
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig returns a configuration with the production defaults and no external infrastructure.
func NewTestConfig() *Config {
	return &Config{
		HTTPAddr:            ":0",
		MinBet:              100,
		GameFee:             10,
		StakeTiers:          []int64{100, 200, 500, 1000, 2000, 5000, 10000},
		ChoiceTimeout:       30 * time.Second,
		DrawResetDelay:      2 * time.Second,
		SweepInterval:       30 * time.Second,
		StaleThreshold:      2 * time.Minute,
		PaymentReferenceTTL: 24 * time.Hour,
		OTelExporterType:    "none",
		OTelServiceName:     "rpsarena",
		LogLevel:            "info",
		LogFormat:           "text",
		Environment:         "test",
	}
}
