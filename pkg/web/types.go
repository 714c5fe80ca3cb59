// Package web provides the HTTP surface for triggering cascades and
// inspecting their results.
package web

import (
	"time"

	"github.com/cascadehq/cascade/pkg/models"
)

// TriggerCascadeRequest is the body of POST /cascades.
//
// Exactly one of the two modes applies: a tenant-scoped trigger (TenantID
// required, optional inline payload or existing submission), or a bulk
// sweep over every pending submission (AllTenants true).
type TriggerCascadeRequest struct {
	TenantID string `json:"tenant_id" validate:"required_without=AllTenants"`

	// SubmissionID targets an existing submission. When empty, a new
	// submission is created from Payload and Source; an empty payload
	// creates a bare re-run trigger.
	SubmissionID string `json:"submission_id,omitempty"`
	Payload      string `json:"payload,omitempty"`
	Source       string `json:"source,omitempty"`

	// WorkflowID targets a single workflow instead of every workflow
	// relevant to the submission's source.
	WorkflowID string `json:"workflow_id,omitempty"`

	// StartFromNodeID restricts execution to the node and its transitive
	// dependents.
	StartFromNodeID string `json:"start_from_node_id,omitempty"`

	// Force executes every in-scope node regardless of recorded hashes.
	Force bool `json:"force,omitempty"`

	// AllTenants sweeps every pending submission across tenants.
	AllTenants bool `json:"all_tenants,omitempty"`

	// EmptyOnly executes only nodes with no recorded output.
	EmptyOnly bool `json:"empty_only,omitempty"`
}

// EvaluationHistoryResponse is the body of
// GET /workflows/:workflowID/nodes/:nodeID/evaluations.
type EvaluationHistoryResponse struct {
	TenantID   string                     `json:"tenant_id"`
	WorkflowID string                     `json:"workflow_id"`
	NodeID     string                     `json:"node_id"`
	Trend      models.EvaluationTrend     `json:"trend"`
	History    []*models.EvaluationRecord `json:"history"`
}

// AlertResponse is one alert in GET /alerts.
type AlertResponse struct {
	ID          string               `json:"id"`
	Type        models.AlertType     `json:"type"`
	Severity    models.AlertSeverity `json:"severity"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Scope       map[string]string    `json:"scope,omitempty"`
	Occurrences int                  `json:"occurrences"`
	FirstSeenAt time.Time            `json:"first_seen_at"`
	LastSeenAt  time.Time            `json:"last_seen_at"`
}

func toAlertResponse(alert *models.Alert) AlertResponse {
	return AlertResponse{
		ID:          alert.ID,
		Type:        alert.Type,
		Severity:    alert.Severity,
		Title:       alert.Title,
		Description: alert.Description,
		Scope:       alert.Scope,
		Occurrences: alert.Occurrences,
		FirstSeenAt: alert.FirstSeenAt,
		LastSeenAt:  alert.LastSeenAt,
	}
}
