package graph_test

import (
	"testing"

	"github.com/cascadehq/cascade/pkg/graph"
	"github.com/cascadehq/cascade/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptNode(id string, deps ...string) *models.Node {
	parts := make([]models.PromptPart, 0, len(deps))
	for _, dep := range deps {
		parts = append(parts, models.PromptPart{Kind: models.PartKindDependency, NodeID: dep})
	}

	return &models.Node{
		ID:     id,
		Type:   models.NodeTypePrompt,
		Label:  id,
		Config: models.NodeConfig{Prompt: &models.PromptConfig{Parts: parts}},
	}
}

func assertBefore(t *testing.T, order []string, earlier, later string) {
	t.Helper()

	positions := make(map[string]int, len(order))
	for i, id := range order {
		positions[id] = i
	}

	require.Contains(t, positions, earlier)
	require.Contains(t, positions, later)
	assert.Less(t, positions[earlier], positions[later], "%s should run before %s", earlier, later)
}

func TestOrderTopological(t *testing.T) {
	t.Parallel()

	// Diamond: a feeds b and c, both feed d.
	nodes := []*models.Node{
		promptNode("d", "b", "c"),
		promptNode("b", "a"),
		promptNode("c", "a"),
		promptNode("a"),
	}

	order := graph.Order(nodes)
	require.Len(t, order, 4)

	assertBefore(t, order, "a", "b")
	assertBefore(t, order, "a", "c")
	assertBefore(t, order, "b", "d")
	assertBefore(t, order, "c", "d")
}

func TestOrderStableSeed(t *testing.T) {
	t.Parallel()

	// Independent nodes keep declaration order.
	nodes := []*models.Node{
		promptNode("x"),
		promptNode("y"),
		promptNode("z"),
	}

	assert.Equal(t, []string{"x", "y", "z"}, graph.Order(nodes))
}

func TestOrderCycleFallback(t *testing.T) {
	t.Parallel()

	nodes := []*models.Node{
		promptNode("root"),
		promptNode("a", "b", "root"),
		promptNode("b", "a"),
	}

	order := graph.Order(nodes)

	// The cycle members still appear exactly once; execution never
	// deadlocks.
	assert.ElementsMatch(t, []string{"root", "a", "b"}, order)
	assert.Equal(t, "root", order[0])
}

func TestOrderIgnoresCrossWorkflowAndUnknown(t *testing.T) {
	t.Parallel()

	cross := promptNode("consumer")
	cross.Config.Prompt.Parts = []models.PromptPart{
		{Kind: models.PartKindDependency, NodeID: "remote", WorkflowID: "other-wf"},
		{Kind: models.PartKindDependency, NodeID: "deleted-node"},
	}

	order := graph.Order([]*models.Node{cross})

	assert.Equal(t, []string{"consumer"}, order)
}

func TestOrderSkipsDecorativeNodes(t *testing.T) {
	t.Parallel()

	nodes := []*models.Node{
		promptNode("a"),
		{ID: "note", Type: models.NodeTypeNote, Label: "note"},
		{ID: "group", Type: models.NodeTypeGroup, Label: "group"},
	}

	assert.Equal(t, []string{"a"}, graph.Order(nodes))
}

func TestDependents(t *testing.T) {
	t.Parallel()

	nodes := []*models.Node{
		promptNode("a"),
		promptNode("b", "a"),
		promptNode("c", "b"),
		promptNode("side", "a"),
		promptNode("island"),
	}

	reached := graph.Dependents(nodes, "b")

	assert.Equal(t, map[string]bool{"b": true, "c": true}, reached)
}

func TestDependentsIncludesStartOnly(t *testing.T) {
	t.Parallel()

	nodes := []*models.Node{promptNode("solo")}

	assert.Equal(t, map[string]bool{"solo": true}, graph.Dependents(nodes, "solo"))
}
