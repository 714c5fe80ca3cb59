// Package parts renders the ordered prompt parts a prompt or fragment body
// is assembled from.
package parts

import (
	"strings"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/protocol"
)

// Render assembles the parts in order: literal text as-is, variable parts
// from the workflow's variables, dependency parts from the resolved results
// map. Non-empty pieces are separated by blank lines.
func Render(in protocol.NodeInput, promptParts []models.PromptPart) string {
	pieces := make([]string, 0, len(promptParts))

	for _, part := range promptParts {
		var piece string

		switch part.Kind {
		case models.PartKindText:
			piece = part.Text
		case models.PartKindVariable:
			piece = in.Variables[part.Variable]
		case models.PartKindDependency:
			piece = in.Resolve(models.Dependency{NodeID: part.NodeID, WorkflowID: part.WorkflowID})
		}

		if strings.TrimSpace(piece) == "" {
			continue
		}

		pieces = append(pieces, piece)
	}

	return strings.Join(pieces, "\n\n")
}

// ContainsStopSignal reports whether any dependency part resolves to the
// reserved stop sentinel.
func ContainsStopSignal(in protocol.NodeInput, promptParts []models.PromptPart) bool {
	for _, part := range promptParts {
		if part.Kind != models.PartKindDependency {
			continue
		}

		resolved := in.Resolve(models.Dependency{NodeID: part.NodeID, WorkflowID: part.WorkflowID})
		if strings.Contains(resolved, models.StopSignal) {
			return true
		}
	}

	return false
}

// StripCodeFence removes a wrapping markdown code fence, if present.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)

	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")

	if newline := strings.Index(trimmed, "\n"); newline != -1 {
		trimmed = trimmed[newline+1:]
	}

	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}
