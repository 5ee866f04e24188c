package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rpsarena/config"
	"rpsarena/events"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// MetricsProvider turns committed domain events into OpenTelemetry counters
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	enabled       bool
	mu            sync.RWMutex

	ledgerEntriesCounter    metric.Int64Counter
	ledgerVolumeCounter     metric.Int64Counter
	wagersPlacedCounter     metric.Int64Counter
	matchesCreatedCounter   metric.Int64Counter
	matchesDrawnCounter     metric.Int64Counter
	matchesResolvedCounter  metric.Int64Counter
	matchesCancelledCounter metric.Int64Counter
	refundsCounter          metric.Int64Counter
	refundedAmountCounter   metric.Int64Counter
	matchRoundsHist         metric.Int64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the exporter configured by OTEL_EXPORTER_TYPE
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		return nil
	}

	var exporter sdkmetric.Exporter
	var err error
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(dialCtx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
	if err := mp.initializeWithReader(reader); err != nil {
		return err
	}

	otel.SetMeterProvider(mp.meterProvider)
	log.Info("Metrics provider initialized successfully")
	return nil
}

func (mp *MetricsProvider) initializeWithReader(reader sdkmetric.Reader) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.enabled {
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	mp.meter = mp.meterProvider.Meter("rpsarena")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.enabled = true
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.ledgerEntriesCounter, LedgerEntriesTotal, "Ledger entries written, by kind"},
		{&mp.ledgerVolumeCounter, LedgerVolumeTotal, "Minor units moved through the ledger, by kind"},
		{&mp.wagersPlacedCounter, WagersPlacedTotal, "Stakes debited, by wager kind"},
		{&mp.matchesCreatedCounter, MatchesCreatedTotal, "Matches created, by source"},
		{&mp.matchesDrawnCounter, MatchesDrawnTotal, "Rounds that ended in a draw"},
		{&mp.matchesResolvedCounter, MatchesResolvedTotal, "Matches resolved with a winner"},
		{&mp.matchesCancelledCounter, MatchesCancelledTotal, "Matches cancelled, by reason"},
		{&mp.refundsCounter, RefundsTotal, "Refunds issued, by wager kind and reason"},
		{&mp.refundedAmountCounter, RefundedAmountTotal, "Minor units refunded, by reason"},
	}

	for _, c := range counters {
		counter, err := mp.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", c.name, err)
		}
		*c.target = counter
	}

	var err error
	mp.matchRoundsHist, err = mp.meter.Int64Histogram(
		MatchRounds,
		metric.WithDescription("Rounds played before a match resolved"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 5, 8, 13),
	)
	if err != nil {
		return fmt.Errorf("failed to create match rounds histogram: %w", err)
	}
	return nil
}

// Register subscribes the provider to every event on bus
func (mp *MetricsProvider) Register(bus *events.Bus) {
	bus.SubscribeAll(mp.Record)
}

// Record updates the counters for one event
func (mp *MetricsProvider) Record(ctx context.Context, event events.Event) {
	if !mp.isEnabled() {
		return
	}

	switch e := event.(type) {
	case events.LedgerEntryRecordedEvent:
		attrs := metric.WithAttributes(attribute.String(LabelKind, string(e.Kind)))
		mp.ledgerEntriesCounter.Add(ctx, 1, attrs)
		mp.ledgerVolumeCounter.Add(ctx, e.Amount, attrs)
	case events.WagerPlacedEvent:
		mp.wagersPlacedCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String(LabelWagerKind, string(e.WagerKind))))
	case events.MatchCreatedEvent:
		mp.matchesCreatedCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String(LabelSource, string(e.Source))))
	case events.MatchDrawnEvent:
		mp.matchesDrawnCounter.Add(ctx, 1)
	case events.MatchResolvedEvent:
		mp.matchesResolvedCounter.Add(ctx, 1)
		mp.matchRoundsHist.Record(ctx, int64(e.Rounds))
	case events.MatchCancelledEvent:
		mp.matchesCancelledCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String(LabelReason, string(e.Reason))))
	case events.WagerRefundedEvent:
		mp.refundsCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String(LabelWagerKind, string(e.WagerKind)),
			attribute.String(LabelReason, string(e.Reason)),
		))
		mp.refundedAmountCounter.Add(ctx, e.Amount,
			metric.WithAttributes(attribute.String(LabelReason, string(e.Reason))))
	}
}

// Shutdown flushes and stops the exporter
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.enabled
}
