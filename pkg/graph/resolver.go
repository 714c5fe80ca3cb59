// Package graph derives execution order from the logical dependency graph of
// a workflow's nodes. Cosmetic canvas edges are never consulted.
package graph

import (
	"github.com/cascadehq/cascade/pkg/models"
)

// Order returns a topological execution order over the executable nodes,
// computed with Kahn's algorithm. Cross-workflow dependencies and references
// to unknown nodes are excluded from in-degree counting; they are resolved by
// store lookup at execution time.
//
// The order is always total: if the graph contains a cycle, the nodes left
// unprocessed are appended in declaration order so execution never
// deadlocks. That fallback does not break the cycle; cyclic graphs are a
// modeling error and their relative order is unspecified.
func Order(nodes []*models.Node) []string {
	known := make(map[string]*models.Node, len(nodes))

	var ids []string

	for _, n := range nodes {
		if !n.Type.Executable() {
			continue
		}

		known[n.ID] = n
		ids = append(ids, n.ID)
	}

	// dependency -> dependents adjacency, in-degree per node
	dependents := make(map[string][]string, len(known))
	indegree := make(map[string]int, len(known))

	for _, id := range ids {
		indegree[id] = 0
	}

	for _, id := range ids {
		for _, dep := range known[id].Dependencies() {
			if dep.CrossWorkflow() {
				continue
			}

			if _, ok := known[dep.NodeID]; !ok {
				continue
			}

			dependents[dep.NodeID] = append(dependents[dep.NodeID], id)
			indegree[id]++
		}
	}

	// Seed with zero in-degree nodes in declaration order so the result is
	// stable across runs.
	var queue []string

	for _, id := range ids {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(ids))
	placed := make(map[string]bool, len(ids))

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		order = append(order, id)
		placed[id] = true

		for _, dependent := range dependents[id] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	// Cycle fallback: cover the remaining nodes in declaration order.
	for _, id := range ids {
		if !placed[id] {
			order = append(order, id)
		}
	}

	return order
}

// Dependents returns the set of nodes transitively depending on start,
// including start itself, following same-graph logical edges only.
func Dependents(nodes []*models.Node, start string) map[string]bool {
	dependents := make(map[string][]string)

	for _, n := range nodes {
		if !n.Type.Executable() {
			continue
		}

		for _, dep := range n.Dependencies() {
			if dep.CrossWorkflow() {
				continue
			}

			dependents[dep.NodeID] = append(dependents[dep.NodeID], n.ID)
		}
	}

	reached := map[string]bool{start: true}
	stack := []string{start}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, next := range dependents[id] {
			if !reached[next] {
				reached[next] = true
				stack = append(stack, next)
			}
		}
	}

	return reached
}
