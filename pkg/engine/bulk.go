package engine

import (
	"context"
	"fmt"
)

// RunPending processes every pending submission across tenants, oldest
// first, one at a time. Per-submission failures are reported in the result
// slice position-by-position and do not stop the sweep.
func (c *Controller) RunPending(ctx context.Context, emptyOnly bool) ([]*RunReport, error) {
	pending, err := c.store.SubmissionRepository().ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending submissions: %w", err)
	}

	reports := make([]*RunReport, 0, len(pending))

	for _, submission := range pending {
		report, err := c.Run(ctx, TriggerRequest{
			TenantID:     submission.TenantID,
			SubmissionID: submission.ID,
			EmptyOnly:    emptyOnly,
		})
		if err != nil {
			c.logger.ErrorContext(ctx, "pending submission run failed",
				"submission_id", submission.ID,
				"tenant_id", submission.TenantID,
				"error", err)

			continue
		}

		reports = append(reports, report)
	}

	return reports, nil
}
