package models

import "time"

// Edge is a cosmetic canvas connection between two nodes. Edges are stored
// for display only; execution order is always derived from logical
// dependencies in node configuration.
type Edge struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"source_node_id" validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
}

// WorkflowSettings carries cascade-relevant workflow options.
type WorkflowSettings struct {
	// DataTags attributes the workflow to submission source classifications.
	// Empty means the workflow is relevant to every source.
	DataTags []string `json:"data_tags,omitempty"`

	// ParentID marks the workflow as a sub-workflow of another.
	ParentID *string `json:"parent_id,omitempty"`
}

// Workflow is a directed graph of typed processing nodes executed against
// per-tenant submissions.
type Workflow struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"        validate:"required,min=3"`
	Nodes     []*Node           `json:"nodes"`
	Edges     []*Edge           `json:"edges"` // display only
	Variables map[string]string `json:"variables,omitempty"`
	Settings  WorkflowSettings  `json:"settings"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	DeletedAt *time.Time        `json:"deleted_at,omitempty"`
}

// Node returns the node with the given id, or nil.
func (w *Workflow) Node(id string) *Node {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// IngestNode returns the workflow's ingest node, or nil. A workflow without
// one is never eligible for tenant-driven cascades.
func (w *Workflow) IngestNode() *Node {
	for _, n := range w.Nodes {
		if n.Type == NodeTypeIngest {
			return n
		}
	}

	return nil
}

// ExecutableNodes returns the nodes that participate in cascades, preserving
// declaration order.
func (w *Workflow) ExecutableNodes() []*Node {
	nodes := make([]*Node, 0, len(w.Nodes))

	for _, n := range w.Nodes {
		if n.Type.Executable() {
			nodes = append(nodes, n)
		}
	}

	return nodes
}

// RelevantTo reports whether the workflow should cascade for a submission
// with the given source classification.
func (w *Workflow) RelevantTo(source string) bool {
	if len(w.Settings.DataTags) == 0 {
		return true
	}

	for _, tag := range w.Settings.DataTags {
		if tag == source {
			return true
		}
	}

	return false
}
