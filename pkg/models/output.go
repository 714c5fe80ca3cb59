package models

import (
	"strings"
	"time"
)

// StopSignal is the reserved sentinel a prompt can emit to halt its branch.
// When any dependency of a prompt node carries it, the prompt's own output
// becomes the sentinel and no provider call is made.
const StopSignal = "[STOP]"

// ErrorMarker wraps a node-level failure message into the bracketed form
// stored in place of real output. Failures never abort a cascade.
func ErrorMarker(msg string) string {
	return "[ERROR: " + msg + "]"
}

// IsErrorMarker reports whether an output value is a bracketed error marker.
func IsErrorMarker(output string) bool {
	return strings.HasPrefix(output, "[ERROR: ") && strings.HasSuffix(output, "]")
}

// NodeOutputRecord is the persisted result of one node execution for one
// tenant. It is keyed by (tenant, workflow, node), overwritten with an
// incremented version on every subsequent execution, and deleted only by an
// explicit tenant reset.
type NodeOutputRecord struct {
	TenantID   string `json:"tenant_id"`
	WorkflowID string `json:"workflow_id"`
	NodeID     string `json:"node_id"`

	Output      string `json:"output"`
	ContentHash string `json:"content_hash"`

	// DependencyHashes maps dependency keys (node id, or "workflow:node" for
	// cross-graph entries) to the content hash each dependency had the last
	// time this node executed. Live-fetch dependencies are never tracked.
	DependencyHashes map[string]string `json:"dependency_hashes,omitempty"`

	Version int `json:"version"`

	Evaluation       *EvaluationRecord `json:"evaluation,omitempty"`
	LowQualityFields []string          `json:"low_quality_fields,omitempty"`

	ExecutedAt time.Time `json:"executed_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
