package framework_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/nodes/framework"
	"github.com/cascadehq/cascade/pkg/persistence"
	"github.com/cascadehq/cascade/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFrameworks struct {
	frameworks map[string]*models.Framework
}

func (s stubFrameworks) FrameworkByID(_ context.Context, id string) (*models.Framework, error) {
	framework, ok := s.frameworks[id]
	if !ok {
		return nil, persistence.ErrFrameworkNotFound
	}

	return framework, nil
}

func frameworkNode(frameworkID string) *models.Node {
	return &models.Node{
		ID:     "fw",
		Type:   models.NodeTypeFramework,
		Label:  "framework",
		Config: models.NodeConfig{Framework: &models.FrameworkConfig{FrameworkID: frameworkID}},
	}
}

func TestExecuteRendersSchema(t *testing.T) {
	t.Parallel()

	executor := framework.NewExecutor(slog.Default(), stubFrameworks{frameworks: map[string]*models.Framework{
		"f1": {
			ID:          "f1",
			Name:        "Scoring Rubric",
			Description: "Scores account health.",
			Schema:      `{"criteria":["growth"]}`,
		},
	}})

	result, err := executor.Execute(context.Background(), protocol.NodeInput{}, frameworkNode("f1"))
	require.NoError(t, err)

	assert.Contains(t, result.Output, "# Scoring Rubric")
	assert.Contains(t, result.Output, "Scores account health.")
	assert.Contains(t, result.Output, "```json")
	assert.Contains(t, result.Output, `"growth"`)
}

func TestExecuteUnparseableSchema(t *testing.T) {
	t.Parallel()

	executor := framework.NewExecutor(slog.Default(), stubFrameworks{frameworks: map[string]*models.Framework{
		"f1": {ID: "f1", Name: "Legacy", Schema: "criteria: growth"},
	}})

	result, err := executor.Execute(context.Background(), protocol.NodeInput{}, frameworkNode("f1"))
	require.NoError(t, err)

	// Raw text is kept, no fence.
	assert.Contains(t, result.Output, "criteria: growth")
	assert.NotContains(t, result.Output, "```json")
}

func TestExecuteUnknownFramework(t *testing.T) {
	t.Parallel()

	executor := framework.NewExecutor(slog.Default(), stubFrameworks{})

	_, err := executor.Execute(context.Background(), protocol.NodeInput{}, frameworkNode("missing"))
	assert.Error(t, err)
}

func TestExecuteMissingConfig(t *testing.T) {
	t.Parallel()

	executor := framework.NewExecutor(slog.Default(), stubFrameworks{})

	_, err := executor.Execute(context.Background(), protocol.NodeInput{},
		&models.Node{ID: "fw", Type: models.NodeTypeFramework})
	assert.Error(t, err)
}
