package variable

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSchemaStore struct {
	values []models.FieldValue
	fail   bool
}

func (s *fakeSchemaStore) DescribeDomain(context.Context, string, string) (string, error) {
	return "", nil
}

func (s *fakeSchemaStore) UpsertFieldValue(_ context.Context, value models.FieldValue) error {
	if s.fail {
		return errors.New("store down")
	}

	s.values = append(s.values, value)

	return nil
}

func (s *fakeSchemaStore) ApplyChangePlan(context.Context, string, models.ChangePlan, models.AgentApplyMode, bool, models.ChangeProvenance) (models.ApplyReport, error) {
	return models.ApplyReport{}, nil
}

func TestExtractPath(t *testing.T) {
	tests := []struct {
		name     string
		document string
		path     string
		want     string
		wantErr  bool
	}{
		{
			name:     "top level string",
			document: `{"name": "Acme"}`,
			path:     "name",
			want:     "Acme",
		},
		{
			name:     "nested with index",
			document: `{"company": {"contacts": [{"email": "a@acme.test"}, {"email": "b@acme.test"}]}}`,
			path:     "company.contacts[1].email",
			want:     "b@acme.test",
		},
		{
			name:     "fenced document",
			document: "```json\n{\"score\": 42}\n```",
			path:     "score",
			want:     "42",
		},
		{
			name:     "stringified nested document",
			document: `{"inner": "{\"deep\": \"value\"}"}`,
			path:     "inner.deep",
			want:     "value",
		},
		{
			name:     "empty path returns whole document",
			document: "plain text output",
			path:     "",
			want:     "plain text output",
		},
		{
			name:     "non-string leaf is encoded",
			document: `{"tags": ["a", "b"]}`,
			path:     "tags",
			want:     `["a","b"]`,
		},
		{
			name:     "missing key",
			document: `{"name": "Acme"}`,
			path:     "missing",
			wantErr:  true,
		},
		{
			name:     "index out of range",
			document: `{"items": [1]}`,
			path:     "items[3]",
			wantErr:  true,
		},
		{
			name:     "unstructured document with path",
			document: "just prose",
			path:     "field",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractPath(tt.document, tt.path)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecuteStaticLookup(t *testing.T) {
	executor := NewExecutor(slog.Default(), &fakeSchemaStore{})

	in := protocol.NodeInput{Variables: map[string]string{"region": "emea"}}
	node := &models.Node{
		ID:     "var-1",
		Type:   models.NodeTypeVariable,
		Config: models.NodeConfig{Variable: &models.VariableConfig{Name: "region"}},
	}

	result, err := executor.Execute(context.Background(), in, node)
	require.NoError(t, err)
	assert.Equal(t, "emea", result.Output)
}

func TestExecuteMappings(t *testing.T) {
	store := &fakeSchemaStore{}
	executor := NewExecutor(slog.Default(), store)

	in := protocol.NodeInput{
		TenantID: "tenant-1",
		Workflow: &models.Workflow{ID: "wf-1"},
		Results: map[string]string{
			"source-1": `{"company": {"industry": "logistics", "size": 120}}`,
		},
	}
	node := &models.Node{
		ID:   "var-1",
		Type: models.NodeTypeVariable,
		Config: models.NodeConfig{Variable: &models.VariableConfig{
			Mappings: []models.SchemaMapping{
				{NodeID: "source-1", Path: "company.industry", Domain: "customer", Field: "industry"},
				{NodeID: "source-1", Path: "company.size", Domain: "customer", Level: "company", Field: "headcount"},
				{NodeID: "source-1", Path: "company.missing", Domain: "customer", Field: "broken"},
			},
		}},
	}

	result, err := executor.Execute(context.Background(), in, node)
	require.NoError(t, err)

	require.Len(t, store.values, 2)
	assert.Equal(t, "logistics", store.values[0].Value)
	assert.Equal(t, "industry", store.values[0].Path)
	assert.Equal(t, "wf-1:var-1", store.values[0].Source)
	assert.Equal(t, "120", store.values[1].Value)
	assert.Equal(t, "company", store.values[1].Level)

	assert.Equal(t, []string{"broken"}, result.LowQualityFields)
	assert.Contains(t, result.Output, "customer.industry = logistics")
	assert.Contains(t, result.Output, "extraction failed")
}

func TestExecuteMappingWriteFailureIsContained(t *testing.T) {
	store := &fakeSchemaStore{fail: true}
	executor := NewExecutor(slog.Default(), store)

	in := protocol.NodeInput{
		TenantID: "tenant-1",
		Results:  map[string]string{"source-1": `{"a": "b"}`},
	}
	node := &models.Node{
		ID:   "var-1",
		Type: models.NodeTypeVariable,
		Config: models.NodeConfig{Variable: &models.VariableConfig{
			Mappings: []models.SchemaMapping{
				{NodeID: "source-1", Path: "a", Domain: "customer", Field: "a"},
			},
		}},
	}

	result, err := executor.Execute(context.Background(), in, node)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, result.LowQualityFields)
}
