// Package main provides the Cascade pending-submission sweep runner.
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cascadehq/cascade/pkg/engine"
	"github.com/robfig/cron/v3"
)

// Runner drives the pending-submission sweep on a cron schedule.
type Runner struct {
	logger     *slog.Logger
	controller *engine.Controller
	schedule   string
	emptyOnly  bool
}

func NewRunner(logger *slog.Logger, controller *engine.Controller, schedule string, emptyOnly bool) *Runner {
	return &Runner{
		logger:     logger.With("module", "runner"),
		controller: controller,
		schedule:   schedule,
		emptyOnly:  emptyOnly,
	}
}

// Start validates the schedule, runs one immediate sweep, then blocks
// sweeping on the cron schedule until the context is canceled.
func (r *Runner) Start(ctx context.Context) error {
	if _, err := cron.ParseStandard(r.schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", r.schedule, err)
	}

	r.sweep(ctx)

	c := cron.New()

	if _, err := c.AddFunc(r.schedule, func() {
		r.sweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	c.Start()

	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()

	return nil
}

func (r *Runner) sweep(ctx context.Context) {
	reports, err := r.controller.RunPending(ctx, r.emptyOnly)
	if err != nil {
		r.logger.ErrorContext(ctx, "Pending sweep failed", "error", err)

		return
	}

	executed := 0
	for _, report := range reports {
		executed += report.ExecutedCount()
	}

	r.logger.InfoContext(ctx, "Pending sweep finished",
		"submissions", len(reports),
		"nodes_executed", executed)
}
