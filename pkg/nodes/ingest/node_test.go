package ingest_test

import (
	"context"
	"testing"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/nodes/ingest"
	"github.com/cascadehq/cascade/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteEmitsPayload(t *testing.T) {
	t.Parallel()

	executor := ingest.NewExecutor()

	result, err := executor.Execute(context.Background(), protocol.NodeInput{
		Submission: &models.Submission{Source: "crm", Payload: `{"x":1}`},
	}, &models.Node{ID: "ing", Type: models.NodeTypeIngest})

	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, result.Output)
}

func TestExecuteSourceFilter(t *testing.T) {
	t.Parallel()

	executor := ingest.NewExecutor()
	node := &models.Node{
		ID:     "ing",
		Type:   models.NodeTypeIngest,
		Config: models.NodeConfig{Ingest: &models.IngestConfig{Sources: []string{"billing"}}},
	}

	result, err := executor.Execute(context.Background(), protocol.NodeInput{
		Submission: &models.Submission{Source: "crm", Payload: "data"},
	}, node)
	require.NoError(t, err)
	assert.Empty(t, result.Output)

	result, err = executor.Execute(context.Background(), protocol.NodeInput{
		Submission: &models.Submission{Source: "billing", Payload: "data"},
	}, node)
	require.NoError(t, err)
	assert.Equal(t, "data", result.Output)
}

func TestExecuteWithoutSubmission(t *testing.T) {
	t.Parallel()

	executor := ingest.NewExecutor()

	_, err := executor.Execute(context.Background(), protocol.NodeInput{},
		&models.Node{ID: "ing", Type: models.NodeTypeIngest})
	assert.Error(t, err)
}
