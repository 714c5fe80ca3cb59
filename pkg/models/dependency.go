package models

// Dependency is a logical edge derived from node configuration. Same-graph
// dependencies drive ordering and dirtiness; cross-workflow dependencies are
// resolved by direct store lookup and only ever trigger cross-workflow
// cascades.
type Dependency struct {
	NodeID     string
	WorkflowID string // empty for same-graph dependencies
	Triggers   bool   // a hash change in the dependency marks the consumer dirty
}

// CrossWorkflow reports whether the dependency points into another graph.
func (d Dependency) CrossWorkflow() bool {
	return d.WorkflowID != ""
}

// Key returns the dependency-hash map key: the bare node id for same-graph
// entries, "workflow:node" for cross-workflow entries.
func (d Dependency) Key() string {
	if d.WorkflowID != "" {
		return d.WorkflowID + ":" + d.NodeID
	}

	return d.NodeID
}

// Dependencies extracts the node's logical dependencies from its typed
// configuration. The cosmetic canvas edges play no part here.
func (n *Node) Dependencies() []Dependency {
	switch n.Type {
	case NodeTypePrompt:
		if n.Config.Prompt == nil {
			return nil
		}

		return partDependencies(n.Config.Prompt.Parts)
	case NodeTypeFragment:
		if n.Config.Fragment == nil {
			return nil
		}

		return partDependencies(n.Config.Fragment.Parts)
	case NodeTypeDataset:
		if n.Config.Dataset == nil || n.Config.Dataset.Mode != DatasetModeAggregate {
			return nil
		}

		deps := make([]Dependency, 0, len(n.Config.Dataset.NodeIDs))
		for _, id := range n.Config.Dataset.NodeIDs {
			deps = append(deps, Dependency{NodeID: id, Triggers: true})
		}

		return deps
	case NodeTypeVariable:
		if n.Config.Variable == nil {
			return nil
		}

		seen := make(map[string]bool)
		deps := make([]Dependency, 0, len(n.Config.Variable.Mappings))

		for _, m := range n.Config.Variable.Mappings {
			if seen[m.NodeID] {
				continue
			}

			seen[m.NodeID] = true
			deps = append(deps, Dependency{NodeID: m.NodeID, Triggers: true})
		}

		return deps
	case NodeTypeAgent:
		if n.Config.Agent == nil || n.Config.Agent.SourceNodeID == "" {
			return nil
		}

		return []Dependency{{NodeID: n.Config.Agent.SourceNodeID, Triggers: true}}
	case NodeTypeIngest, NodeTypeFramework, NodeTypeWebFetch, NodeTypeNote, NodeTypeGroup:
		return nil
	default:
		return nil
	}
}

func partDependencies(parts []PromptPart) []Dependency {
	var deps []Dependency

	for _, part := range parts {
		if part.Kind != PartKindDependency || part.NodeID == "" {
			continue
		}

		deps = append(deps, Dependency{
			NodeID:     part.NodeID,
			WorkflowID: part.WorkflowID,
			Triggers:   !part.TriggerDisabled,
		})
	}

	return deps
}
