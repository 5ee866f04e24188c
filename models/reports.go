package models

import "time"

// SweepReport summarises one staleness sweep pass
type SweepReport struct {
	StartedAt time.Time `json:"startedAt"`
	Scanned   int       `json:"scanned"`
	Stale     int       `json:"stale"`
	Cancelled []string  `json:"cancelled"`
	Failed    []string  `json:"failed,omitempty"`
	Skipped   bool      `json:"skipped,omitempty"`
}

// RepairAction describes what the repair pass decided for one wager
type RepairAction string

const (
	RepairActionNone            RepairAction = "none"
	RepairActionLeftToSweep     RepairAction = "left_to_sweep"
	RepairActionRefundedOrphan  RepairAction = "refunded_orphan"
	RepairActionCompletedRefund RepairAction = "completed_refund"
	RepairActionWouldRefund     RepairAction = "would_refund"
	RepairActionFailed          RepairAction = "failed"
)

// RepairItem is one wager the repair pass looked at
type RepairItem struct {
	WagerKind WagerKind    `json:"wagerKind"`
	WagerID   string       `json:"wagerId"`
	GameID    string       `json:"gameId"`
	Action    RepairAction `json:"action"`
	Refunded  int64        `json:"refunded,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// RepairReport summarises an administrative repair pass
type RepairReport struct {
	DryRun   bool          `json:"dryRun"`
	Scanned  int           `json:"scanned"`
	Items    []*RepairItem `json:"items"`
	Refunded int64         `json:"refunded"`
}
