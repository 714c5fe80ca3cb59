// Package events defines the messages the engine publishes to downstream
// consumers after a cascade.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cascadehq/cascade/pkg/models"
	"github.com/google/uuid"
)

// Topics for external-platform sync fan-out.
const (
	TopicPlatformASync = "cascade.sync.platform_a"
	TopicPlatformBSync = "cascade.sync.platform_b"
)

// NodeOutputEvent is one synced node output.
type NodeOutputEvent struct {
	TenantID   string          `json:"tenant_id"`
	WorkflowID string          `json:"workflow_id"`
	NodeID     string          `json:"node_id"`
	NodeLabel  string          `json:"node_label"`
	NodeType   models.NodeType `json:"node_type"`
	Payload    string          `json:"payload"`
	Version    int             `json:"version"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// Message wraps the event in a watermill message with a fresh UUID.
func (e NodeOutputEvent) Message() (*message.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal node output event: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate message ID: %w", err)
	}

	msg := message.NewMessage(id.String(), payload)
	msg.Metadata.Set("tenant_id", e.TenantID)
	msg.Metadata.Set("workflow_id", e.WorkflowID)

	return msg, nil
}
