package observability

// Metric name prefixes
const (
	MetricPrefix = "rpsarena"
)

// Metric names
const (
	LedgerEntriesTotal    = MetricPrefix + ".ledger.entries_total"
	LedgerVolumeTotal     = MetricPrefix + ".ledger.volume_total"
	WagersPlacedTotal     = MetricPrefix + ".wagers.placed_total"
	MatchesCreatedTotal   = MetricPrefix + ".matches.created_total"
	MatchesDrawnTotal     = MetricPrefix + ".matches.drawn_total"
	MatchesResolvedTotal  = MetricPrefix + ".matches.resolved_total"
	MatchesCancelledTotal = MetricPrefix + ".matches.cancelled_total"
	RefundsTotal          = MetricPrefix + ".refunds.total"
	RefundedAmountTotal   = MetricPrefix + ".refunds.amount_total"
	MatchRounds           = MetricPrefix + ".matches.rounds"
)

// Label keys
const (
	LabelKind      = "kind"
	LabelWagerKind = "wager_kind"
	LabelSource    = "source"
	LabelReason    = "reason"
)
