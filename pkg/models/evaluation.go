package models

import "time"

// Evaluation flags derived from fixed score thresholds.
const (
	FlagHallucinationRisk = "hallucination_risk"
	FlagInsufficientInput = "insufficient_input"
	FlagOverloadedPrompt  = "overloaded_prompt"
)

// MetricScore is one independent quality assessment, 0-100.
type MetricScore struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning,omitempty"`
	Enabled   bool   `json:"enabled"`
}

// EvaluationRecord is the aggregated quality assessment of one generative
// output: three independent metrics, a weighted overall score, and the flags
// raised by thresholds.
type EvaluationRecord struct {
	Groundedness MetricScore `json:"groundedness"`
	DataQuality  MetricScore `json:"data_quality"`
	Scope        MetricScore `json:"scope"`

	Overall int      `json:"overall"`
	Flags   []string `json:"flags,omitempty"`

	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Flagged reports whether any threshold flag was raised.
func (e *EvaluationRecord) Flagged() bool {
	return len(e.Flags) > 0
}

// TrendDirection summarizes how recent evaluations compare to older ones.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

// EvaluationTrend is a summary over a node's retained evaluation history.
type EvaluationTrend struct {
	Direction TrendDirection `json:"direction"`
	Average   int            `json:"average"`
	Samples   int            `json:"samples"`
}
