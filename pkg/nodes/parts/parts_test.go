package parts

import (
	"testing"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/protocol"
	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	in := protocol.NodeInput{
		Variables: map[string]string{"tone": "formal"},
		Results: map[string]string{
			"dep-1":      "dependency output",
			"wf-2:dep-2": "cross graph output",
		},
	}

	rendered := Render(in, []models.PromptPart{
		{Kind: models.PartKindText, Text: "Summarize:"},
		{Kind: models.PartKindDependency, NodeID: "dep-1"},
		{Kind: models.PartKindVariable, Variable: "tone"},
		{Kind: models.PartKindDependency, NodeID: "dep-2", WorkflowID: "wf-2"},
		{Kind: models.PartKindVariable, Variable: "missing"},
	})

	assert.Equal(t, "Summarize:\n\ndependency output\n\nformal\n\ncross graph output", rendered)
}

func TestContainsStopSignal(t *testing.T) {
	in := protocol.NodeInput{
		Results: map[string]string{
			"dep-1": "normal output",
			"dep-2": models.StopSignal,
		},
	}

	withStop := []models.PromptPart{
		{Kind: models.PartKindText, Text: models.StopSignal},
		{Kind: models.PartKindDependency, NodeID: "dep-2"},
	}
	withoutStop := []models.PromptPart{
		{Kind: models.PartKindText, Text: models.StopSignal},
		{Kind: models.PartKindDependency, NodeID: "dep-1"},
	}

	assert.True(t, ContainsStopSignal(in, withStop))
	// Literal text parts never carry the sentinel.
	assert.False(t, ContainsStopSignal(in, withoutStop))
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"no fence", "plain text", "plain text"},
		{"fenced with language", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced without language", "```\nhello\n```", "hello"},
		{"surrounding whitespace", "  ```\nhello\n```  ", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.text))
		})
	}
}
