// Package protocol defines the contracts between the cascade engine and its
// node executors and external collaborators.
package protocol

import (
	"context"

	"github.com/cascadehq/cascade/pkg/models"
)

// NodeInput is everything an executor may consume: the run scope, the
// triggering submission, the workflow's variables, and the resolved outputs
// of the node's dependencies keyed by dependency key.
type NodeInput struct {
	TenantID   string
	Workflow   *models.Workflow
	Submission *models.Submission
	Variables  map[string]string
	Results    map[string]string
}

// Resolve returns the output recorded for a dependency, empty when the
// dependency has never produced one.
func (in NodeInput) Resolve(dep models.Dependency) string {
	return in.Results[dep.Key()]
}

// NodeResult is what an executor produced for one node.
type NodeResult struct {
	Output string

	// Truncated marks provider output cut off at the token ceiling. The
	// output is kept, incomplete, and a performance alert is raised.
	Truncated bool

	Evaluation       *models.EvaluationRecord
	LowQualityFields []string
}

// NodeExecutor runs nodes of a single type. Executors contain failures: a
// returned error becomes a bracketed marker output and the cascade
// continues.
type NodeExecutor interface {
	Type() models.NodeType
	Execute(ctx context.Context, in NodeInput, node *models.Node) (NodeResult, error)
}
