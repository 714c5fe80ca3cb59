package models

import (
	"sort"
	"strings"
	"time"
)

// AlertType classifies operational alerts.
type AlertType string

const (
	AlertTypeModelError       AlertType = "model_error"
	AlertTypeModelNotFound    AlertType = "model_not_found"
	AlertTypeTruncation       AlertType = "truncation"
	AlertTypeLowQuality       AlertType = "low_quality"
	AlertTypeExecutionSummary AlertType = "execution_summary"
)

// AlertSeverity ranks alerts in the operational feed.
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// Alert is a deduplicated operational event. Re-raising an alert with the
// same type and scope increments its occurrence count and advances the
// last-seen timestamp instead of creating a new row.
type Alert struct {
	ID          string            `json:"id"`
	Type        AlertType         `json:"type"     validate:"required"`
	Scope       map[string]string `json:"scope,omitempty"`
	Severity    AlertSeverity     `json:"severity" validate:"required"`
	Title       string            `json:"title"    validate:"required"`
	Description string            `json:"description"`
	Context     map[string]any    `json:"context,omitempty"`

	Occurrences int       `json:"occurrences"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// DedupKey derives the identity an alert is deduplicated by: its type plus
// the sorted scope key-value pairs.
func (a *Alert) DedupKey() string {
	keys := make([]string, 0, len(a.Scope))
	for k := range a.Scope {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder

	b.WriteString(string(a.Type))

	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(a.Scope[k])
	}

	return b.String()
}
