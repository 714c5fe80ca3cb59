// Package alerts raises deduplicated operational alerts. Raising an alert
// never fails the caller's run; storage errors are logged and swallowed.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/persistence"
)

// Service upserts alerts into the alert repository.
type Service struct {
	alerts persistence.AlertRepository
	logger *slog.Logger
}

func NewService(logger *slog.Logger, alerts persistence.AlertRepository) *Service {
	return &Service{
		alerts: alerts,
		logger: logger.With("module", "alerts"),
	}
}

// Raise upserts an alert. Errors are logged, never returned.
func (s *Service) Raise(ctx context.Context, alert *models.Alert) {
	now := time.Now().UTC()
	alert.FirstSeenAt = now
	alert.LastSeenAt = now

	if alert.Occurrences == 0 {
		alert.Occurrences = 1
	}

	if err := s.alerts.Upsert(ctx, alert); err != nil {
		s.logger.ErrorContext(ctx, "failed to raise alert",
			"type", alert.Type,
			"error", err)

		return
	}

	s.logger.InfoContext(ctx, "alert raised",
		"type", alert.Type,
		"severity", alert.Severity,
		"title", alert.Title)
}

// ModelError raises a critical alert for a failed completion call.
func (s *Service) ModelError(ctx context.Context, tenantID, workflowID, nodeID, model string, callErr error) {
	s.Raise(ctx, &models.Alert{
		Type: models.AlertTypeModelError,
		Scope: map[string]string{
			"tenant_id":   tenantID,
			"workflow_id": workflowID,
			"node_id":     nodeID,
		},
		Severity:    models.AlertSeverityCritical,
		Title:       fmt.Sprintf("Completion call failed for node %s", nodeID),
		Description: callErr.Error(),
		Context:     map[string]any{"model": model},
	})
}

// ModelNotFound raises a critical alert for an unknown model identifier.
func (s *Service) ModelNotFound(ctx context.Context, tenantID, workflowID, nodeID, model string) {
	s.Raise(ctx, &models.Alert{
		Type: models.AlertTypeModelNotFound,
		Scope: map[string]string{
			"tenant_id":   tenantID,
			"workflow_id": workflowID,
			"node_id":     nodeID,
			"model":       model,
		},
		Severity:    models.AlertSeverityCritical,
		Title:       fmt.Sprintf("Model %q not found", model),
		Description: fmt.Sprintf("Node %s requested model %q, which the provider does not know.", nodeID, model),
	})
}

// Truncation raises a warning alert for an output cut off at the token
// ceiling.
func (s *Service) Truncation(ctx context.Context, tenantID, workflowID, nodeID string, maxTokens int) {
	s.Raise(ctx, &models.Alert{
		Type: models.AlertTypeTruncation,
		Scope: map[string]string{
			"tenant_id":   tenantID,
			"workflow_id": workflowID,
			"node_id":     nodeID,
		},
		Severity:    models.AlertSeverityWarning,
		Title:       fmt.Sprintf("Output truncated for node %s", nodeID),
		Description: fmt.Sprintf("The completion stopped at the %d token ceiling. The stored output is incomplete.", maxTokens),
		Context:     map[string]any{"max_tokens": maxTokens},
	})
}

// LowQuality raises a warning alert for a flagged evaluation.
func (s *Service) LowQuality(ctx context.Context, tenantID, workflowID, nodeID string, record *models.EvaluationRecord) {
	s.Raise(ctx, &models.Alert{
		Type: models.AlertTypeLowQuality,
		Scope: map[string]string{
			"tenant_id":   tenantID,
			"workflow_id": workflowID,
			"node_id":     nodeID,
		},
		Severity:    models.AlertSeverityWarning,
		Title:       fmt.Sprintf("Low quality output for node %s", nodeID),
		Description: fmt.Sprintf("Evaluation scored %d overall with flags %v.", record.Overall, record.Flags),
		Context: map[string]any{
			"overall": record.Overall,
			"flags":   record.Flags,
		},
	})
}

// ExecutionSummary raises an informational alert summarizing a completed
// cascade.
func (s *Service) ExecutionSummary(ctx context.Context, tenantID string, workflows, executed, cached int) {
	s.Raise(ctx, &models.Alert{
		Type: models.AlertTypeExecutionSummary,
		Scope: map[string]string{
			"tenant_id": tenantID,
		},
		Severity:    models.AlertSeverityInfo,
		Title:       fmt.Sprintf("Cascade completed for tenant %s", tenantID),
		Description: fmt.Sprintf("%d workflows processed: %d nodes executed, %d served from cache.", workflows, executed, cached),
		Context: map[string]any{
			"workflows": workflows,
			"executed":  executed,
			"cached":    cached,
		},
	})
}
