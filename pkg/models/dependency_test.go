package models_test

import (
	"testing"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptDependencies(t *testing.T) {
	t.Parallel()

	node := &models.Node{
		ID:   "p",
		Type: models.NodeTypePrompt,
		Config: models.NodeConfig{Prompt: &models.PromptConfig{
			Parts: []models.PromptPart{
				{Kind: models.PartKindText, Text: "intro"},
				{Kind: models.PartKindDependency, NodeID: "a"},
				{Kind: models.PartKindDependency, NodeID: "b", TriggerDisabled: true},
				{Kind: models.PartKindDependency, NodeID: "x", WorkflowID: "other"},
				{Kind: models.PartKindVariable, Variable: "tone"},
			},
		}},
	}

	deps := node.Dependencies()
	require.Len(t, deps, 3)

	assert.Equal(t, models.Dependency{NodeID: "a", Triggers: true}, deps[0])
	assert.Equal(t, models.Dependency{NodeID: "b", Triggers: false}, deps[1])
	assert.Equal(t, models.Dependency{NodeID: "x", WorkflowID: "other", Triggers: true}, deps[2])

	assert.False(t, deps[0].CrossWorkflow())
	assert.True(t, deps[2].CrossWorkflow())
	assert.Equal(t, "a", deps[0].Key())
	assert.Equal(t, "other:x", deps[2].Key())
}

func TestDatasetDependencies(t *testing.T) {
	t.Parallel()

	aggregate := &models.Node{
		ID:   "d",
		Type: models.NodeTypeDataset,
		Config: models.NodeConfig{Dataset: &models.DatasetConfig{
			Mode:    models.DatasetModeAggregate,
			NodeIDs: []string{"a", "b"},
		}},
	}

	deps := aggregate.Dependencies()
	require.Len(t, deps, 2)
	assert.True(t, deps[0].Triggers)

	snapshot := &models.Node{
		ID:   "s",
		Type: models.NodeTypeDataset,
		Config: models.NodeConfig{Dataset: &models.DatasetConfig{
			Mode:   models.DatasetModeSchemaSnapshot,
			Domain: "accounts",
		}},
	}

	assert.Empty(t, snapshot.Dependencies())
}

func TestVariableDependenciesDeduplicated(t *testing.T) {
	t.Parallel()

	node := &models.Node{
		ID:   "v",
		Type: models.NodeTypeVariable,
		Config: models.NodeConfig{Variable: &models.VariableConfig{
			Mappings: []models.SchemaMapping{
				{NodeID: "src", Path: "a", Domain: "d", Field: "f1"},
				{NodeID: "src", Path: "b", Domain: "d", Field: "f2"},
				{NodeID: "other", Path: "c", Domain: "d", Field: "f3"},
			},
		}},
	}

	deps := node.Dependencies()
	require.Len(t, deps, 2)
	assert.Equal(t, "src", deps[0].NodeID)
	assert.Equal(t, "other", deps[1].NodeID)
}

func TestAgentDependencies(t *testing.T) {
	t.Parallel()

	node := &models.Node{
		ID:     "ag",
		Type:   models.NodeTypeAgent,
		Config: models.NodeConfig{Agent: &models.AgentConfig{SourceNodeID: "plan"}},
	}

	deps := node.Dependencies()
	require.Len(t, deps, 1)
	assert.Equal(t, "plan", deps[0].NodeID)
}

func TestDependenciesNilConfig(t *testing.T) {
	t.Parallel()

	for _, nodeType := range []models.NodeType{
		models.NodeTypePrompt,
		models.NodeTypeFragment,
		models.NodeTypeDataset,
		models.NodeTypeVariable,
		models.NodeTypeAgent,
		models.NodeTypeIngest,
		models.NodeTypeNote,
	} {
		node := &models.Node{ID: "n", Type: nodeType}
		assert.Empty(t, node.Dependencies(), "type %s", nodeType)
	}
}
