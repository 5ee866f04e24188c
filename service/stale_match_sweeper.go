package service

import (
	"context"
	"fmt"
	"time"

	"rpsarena/config"
	"rpsarena/models"

	log "github.com/sirupsen/logrus"
)

// sweeperActor is recorded as cancelled_by on matches the sweep cancels
const sweeperActor = "system"

// StaleMatchSweeper cancels matches that nobody has played for longer than the stale
// threshold and returns both stakes
type StaleMatchSweeper struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
	lease      SweepLease
	now        Clock
}

// NewStaleMatchSweeper creates a new sweeper. lease may be nil for a single replica.
func NewStaleMatchSweeper(uowFactory UnitOfWorkFactory, cfg *config.Config, lease SweepLease) *StaleMatchSweeper {
	return &StaleMatchSweeper{
		uowFactory: uowFactory,
		config:     cfg,
		lease:      lease,
		now:        systemClock,
	}
}

// Start runs a sweep every sweep interval until ctx ends or the returned stop is called
func (w *StaleMatchSweeper) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithFields(log.Fields{
			"interval":  w.config.SweepInterval,
			"threshold": w.config.StaleThreshold,
		}).Info("Stale match sweeper started")

		ticker := time.NewTicker(w.config.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Stale match sweeper shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Stale match sweeper shutting down (stop requested)...")
				return
			case <-ticker.C:
				if _, err := w.SweepOnce(ctx); err != nil {
					log.Errorf("Stale match sweep failed: %v", err)
				}
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// ReleaseLease hands the sweep lease back so another replica can take over without
// waiting for it to expire. Call it after the loop returned by Start is stopped.
func (w *StaleMatchSweeper) ReleaseLease(ctx context.Context) {
	if w.lease == nil {
		return
	}
	if err := w.lease.Release(ctx); err != nil {
		log.WithError(err).Warn("Failed to release sweep lease")
	}
}

// SweepOnce scans live matches and cancels the stale ones. Every match is cancelled in
// its own transaction and a failure on one never stops the scan.
func (w *StaleMatchSweeper) SweepOnce(ctx context.Context) (*models.SweepReport, error) {
	now := w.now()
	report := &models.SweepReport{StartedAt: now, Cancelled: []string{}}

	if w.lease != nil {
		acquired, err := w.lease.TryAcquire(ctx, w.config.SweepInterval)
		if err != nil {
			log.WithError(err).Warn("Failed to acquire sweep lease, sweeping anyway")
		} else if !acquired {
			report.Skipped = true
			return report, nil
		}
	}

	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	matches, err := uow.MatchRepository().ListActive(ctx)
	uow.Rollback()
	if err != nil {
		return nil, fmt.Errorf("failed to list active games: %w", err)
	}
	report.Scanned = len(matches)

	cutoff := now.Add(-w.config.StaleThreshold)
	for _, match := range matches {
		if !match.IsStale(now, w.config.StaleThreshold) {
			continue
		}
		report.Stale++

		cancelled, _, err := cancelAndRefundMatch(ctx, w.uowFactory, match.ID, sweeperActor, models.RefundReasonStaleSweep, &cutoff, now)
		if err != nil {
			log.WithFields(log.Fields{
				"matchID": match.ID,
				"error":   err,
			}).Error("Failed to cancel stale game")
			report.Failed = append(report.Failed, match.ID)
			continue
		}
		if cancelled == nil {
			// Resolved, cancelled or played between the scan and the guarded update
			continue
		}
		report.Cancelled = append(report.Cancelled, cancelled.ID)
	}

	if report.Stale > 0 {
		log.WithFields(log.Fields{
			"scanned":   report.Scanned,
			"stale":     report.Stale,
			"cancelled": len(report.Cancelled),
			"failed":    len(report.Failed),
		}).Info("Stale match sweep completed")
	}

	return report, nil
}
