package engine

import (
	"github.com/cascadehq/cascade/pkg/models"
)

// decisionContext carries what the dirtiness rule needs: the prior record of
// the node under decision, the current hash of each dependency, and the
// live-fetch flags of same-graph nodes.
type decisionContext struct {
	record      *models.NodeOutputRecord
	currentHash func(dep models.Dependency) (string, bool)
	liveFetch   func(nodeID string) bool
}

// needsExecution decides whether a node is dirty. Force mode always
// executes; empty-only mode executes only nodes with no prior output. A node
// with no prior content hash is always dirty. Otherwise any tracked
// dependency whose current hash differs from the hash recorded at the
// node's last execution marks it dirty. Live-fetch dependencies are never
// tracked, and a live-fetch node itself re-executes on every cascade.
func needsExecution(node *models.Node, dc decisionContext, force, emptyOnly bool) bool {
	hasPrior := dc.record != nil && dc.record.ContentHash != ""

	if emptyOnly {
		return !hasPrior
	}

	if force {
		return true
	}

	if !hasPrior {
		return true
	}

	if node.LiveFetch {
		return true
	}

	for _, dep := range node.Dependencies() {
		if !dep.Triggers {
			continue
		}

		if !dep.CrossWorkflow() && dc.liveFetch(dep.NodeID) {
			continue
		}

		current, ok := dc.currentHash(dep)
		if !ok {
			continue
		}

		if dc.record.DependencyHashes[dep.Key()] != current {
			return true
		}
	}

	return false
}
