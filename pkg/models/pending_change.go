package models

import "time"

// PendingChangeStatus is the approval lifecycle of a proposed schema write.
type PendingChangeStatus string

const (
	PendingChangeStatusPending  PendingChangeStatus = "pending"
	PendingChangeStatusApproved PendingChangeStatus = "approved"
	PendingChangeStatusRejected PendingChangeStatus = "rejected"
)

// ChangeProvenance records which node execution proposed a change.
type ChangeProvenance struct {
	WorkflowID string `json:"workflow_id"`
	NodeID     string `json:"node_id"`
	Version    int    `json:"version"`
}

// PendingChange is a proposed create/update to the shared-schema store that
// was not auto-approved. Approval happens outside the engine.
type PendingChange struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`

	Domain string `json:"domain"`
	Level  string `json:"level,omitempty"`
	Path   string `json:"path"`
	Value  string `json:"value"`

	Provenance ChangeProvenance    `json:"provenance"`
	Status     PendingChangeStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
