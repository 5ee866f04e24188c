package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"rpsarena/config"

	log "github.com/sirupsen/logrus"
)

// Repair runs one administrative repair pass against the configured database and
// prints the report as JSON. The report is posted to Discord when a webhook is set.
func Repair(ctx context.Context, dryRun bool) error {
	return runOnce(ctx, func(app *application) (any, error) {
		log.WithField("dryRun", dryRun).Info("Running stuck wager repair")
		report, err := app.services.Repair.RepairStuckWagers(ctx, dryRun)
		if err != nil {
			return nil, fmt.Errorf("repair failed: %w", err)
		}
		return report, nil
	})
}

// Sweep runs one staleness sweep and prints the report as JSON
func Sweep(ctx context.Context) error {
	return runOnce(ctx, func(app *application) (any, error) {
		report, err := app.sweeper.SweepOnce(ctx)
		if err != nil {
			return nil, fmt.Errorf("sweep failed: %w", err)
		}
		return report, nil
	})
}

// runOnce wires the application for a one-off command, runs it, waits for the
// notifications it raised and prints its result
func runOnce(ctx context.Context, command func(app *application) (any, error)) error {
	cfg := config.Get()
	configureLogging(cfg)

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.registerNotifier(); err != nil {
		return err
	}

	result, err := command(app)
	app.drainEvents()
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
