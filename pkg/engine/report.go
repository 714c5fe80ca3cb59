package engine

import (
	"time"

	"github.com/cascadehq/cascade/pkg/sink"
)

// TriggerRequest is the cascade trigger entrypoint payload.
type TriggerRequest struct {
	TenantID     string `json:"tenant_id"`
	SubmissionID string `json:"submission_id"`

	// WorkflowID restricts the run to one workflow. Empty runs every
	// workflow relevant to the submission's source.
	WorkflowID string `json:"workflow_id,omitempty"`

	// StartFromNodeID restricts execution to that node and its transitive
	// dependents.
	StartFromNodeID string `json:"start_from_node_id,omitempty"`

	// Force re-executes every node regardless of dirtiness.
	Force bool `json:"force,omitempty"`

	// EmptyOnly executes only nodes with no prior recorded output.
	EmptyOnly bool `json:"empty_only,omitempty"`
}

// NodeState is the per-node outcome of one workflow run.
type NodeState string

const (
	NodeStateSkippedPaused     NodeState = "skipped_paused"
	NodeStateSkippedOutOfScope NodeState = "skipped_out_of_scope"
	NodeStateCached            NodeState = "cached"
	NodeStateExecuted          NodeState = "executed"
	NodeStateFailed            NodeState = "failed"
)

// WorkflowReport is the outcome of one workflow within a run.
type WorkflowReport struct {
	WorkflowID   string `json:"workflow_id"`
	WorkflowName string `json:"workflow_name"`

	States map[string]NodeState `json:"states"`

	Executed []string `json:"executed"`
	Cached   []string `json:"cached"`

	// Cascaded marks workflows re-run by the cross-workflow cascade rather
	// than the trigger itself.
	Cascaded bool `json:"cascaded,omitempty"`
}

// RunReport is the structured result of one trigger.
type RunReport struct {
	TenantID     string `json:"tenant_id"`
	SubmissionID string `json:"submission_id"`

	Workflows []WorkflowReport `json:"workflows"`
	Synced    sink.Counts      `json:"synced,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ExecutedCount totals executed nodes across workflows.
func (r *RunReport) ExecutedCount() int {
	var n int

	for _, wf := range r.Workflows {
		n += len(wf.Executed)
	}

	return n
}

// CachedCount totals cache-served nodes across workflows.
func (r *RunReport) CachedCount() int {
	var n int

	for _, wf := range r.Workflows {
		n += len(wf.Cached)
	}

	return n
}
