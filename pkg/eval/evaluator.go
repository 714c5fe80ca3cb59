// Package eval scores generative node outputs. Three independent
// assessments run concurrently against the completion provider and are
// combined into a weighted overall score plus threshold flags.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/protocol"
)

// Fixed metric weights. When a metric is disabled its weight is removed and
// the remainder renormalized.
const (
	weightGroundedness = 0.5
	weightDataQuality  = 0.3
	weightScope        = 0.2
)

// flagThreshold is the score at or below which a metric raises its flag.
const flagThreshold = 40

// Settings toggles individual assessments and flag raising. The zero value
// disables everything.
type Settings struct {
	Groundedness bool `json:"groundedness"`
	DataQuality  bool `json:"data_quality"`
	Scope        bool `json:"scope"`
	Flagging     bool `json:"flagging"`

	Model string `json:"model"`

	// Retention bounds the per-node evaluation history.
	Retention int `json:"retention"`
}

// Enabled reports whether at least one metric is active.
func (s Settings) Enabled() bool {
	return s.Groundedness || s.DataQuality || s.Scope
}

// Evaluator runs quality assessments for generative outputs.
type Evaluator struct {
	provider protocol.CompletionProvider
	settings Settings
	logger   *slog.Logger
}

func NewEvaluator(logger *slog.Logger, provider protocol.CompletionProvider, settings Settings) *Evaluator {
	return &Evaluator{
		provider: provider,
		settings: settings,
		logger:   logger.With("module", "eval"),
	}
}

// Settings returns the evaluator's configuration snapshot.
func (e *Evaluator) Settings() Settings {
	return e.settings
}

// Evaluate assesses one generated output against the prompt that produced
// it. Enabled metrics are issued concurrently and awaited together. When
// every metric is disabled a zeroed record is returned without any provider
// call.
func (e *Evaluator) Evaluate(ctx context.Context, prompt, output string) (*models.EvaluationRecord, error) {
	record := &models.EvaluationRecord{EvaluatedAt: time.Now().UTC()}

	if !e.settings.Enabled() {
		return record, nil
	}

	var waitGroup sync.WaitGroup

	if e.settings.Groundedness {
		waitGroup.Add(1)

		go func() {
			defer waitGroup.Done()

			record.Groundedness = e.assess(ctx, groundednessInstruction, prompt, output)
		}()
	}

	if e.settings.DataQuality {
		waitGroup.Add(1)

		go func() {
			defer waitGroup.Done()

			record.DataQuality = e.assess(ctx, dataQualityInstruction, prompt, output)
		}()
	}

	if e.settings.Scope {
		waitGroup.Add(1)

		go func() {
			defer waitGroup.Done()

			record.Scope = e.assess(ctx, scopeInstruction, prompt, output)
		}()
	}

	waitGroup.Wait()

	record.Overall = Combine(record.Groundedness, record.DataQuality, record.Scope)

	if e.settings.Flagging {
		record.Flags = deriveFlags(record)
	}

	return record, nil
}

// Combine computes the weighted overall score over enabled metrics,
// renormalizing the fixed weights when some metrics are disabled.
func Combine(groundedness, dataQuality, scope models.MetricScore) int {
	var weighted, total float64

	if groundedness.Enabled {
		weighted += float64(groundedness.Score) * weightGroundedness
		total += weightGroundedness
	}

	if dataQuality.Enabled {
		weighted += float64(dataQuality.Score) * weightDataQuality
		total += weightDataQuality
	}

	if scope.Enabled {
		weighted += float64(scope.Score) * weightScope
		total += weightScope
	}

	if total == 0 {
		return 0
	}

	return int(math.Round(weighted / total))
}

func deriveFlags(record *models.EvaluationRecord) []string {
	var flags []string

	if record.Groundedness.Enabled && record.Groundedness.Score <= flagThreshold {
		flags = append(flags, models.FlagHallucinationRisk)
	}

	if record.DataQuality.Enabled && record.DataQuality.Score <= flagThreshold {
		flags = append(flags, models.FlagInsufficientInput)
	}

	if record.Scope.Enabled && record.Scope.Score <= flagThreshold {
		flags = append(flags, models.FlagOverloadedPrompt)
	}

	return flags
}

const (
	groundednessInstruction = `You are a strict evaluator. Rate how grounded the response is in the prompt's supplied material, 0-100. 100 means every claim traces to the input; low scores mean invented facts. Respond with JSON: {"score": <int>, "reasoning": "<short>"}.`

	dataQualityInstruction = `You are a strict evaluator. Rate whether the prompt supplied sufficient input data for the response it asked for, 0-100. Low scores mean the model was asked to answer without the data it needed. Respond with JSON: {"score": <int>, "reasoning": "<short>"}.`

	scopeInstruction = `You are a strict evaluator. Rate how well-scoped the prompt is, 0-100. Low scores mean the prompt asks for too many unrelated things at once. Respond with JSON: {"score": <int>, "reasoning": "<short>"}.`
)

// assess issues one metric assessment. Failures degrade to a disabled score
// so one bad provider call never sinks the whole evaluation.
func (e *Evaluator) assess(ctx context.Context, instruction, prompt, output string) models.MetricScore {
	response, err := e.provider.Complete(ctx, protocol.CompletionRequest{
		Model: e.settings.Model,
		Messages: []protocol.Message{
			{Role: "system", Content: instruction},
			{Role: "user", Content: fmt.Sprintf("PROMPT:\n%s\n\nRESPONSE:\n%s", prompt, output)},
		},
		MaxTokens: 512,
	})
	if err != nil {
		e.logger.WarnContext(ctx, "assessment call failed", "error", err)

		return models.MetricScore{}
	}

	score, err := parseAssessment(response.Text)
	if err != nil {
		e.logger.WarnContext(ctx, "assessment response unparsable", "error", err)

		return models.MetricScore{}
	}

	return score
}

type assessmentPayload struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

func parseAssessment(text string) (models.MetricScore, error) {
	cleaned := stripCodeFence(strings.TrimSpace(text))

	var payload assessmentPayload

	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		// Some models wrap the object in surrounding prose. Retry on the
		// outermost braces before giving up.
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")

		if start == -1 || end <= start {
			return models.MetricScore{}, fmt.Errorf("failed to parse assessment: %w", err)
		}

		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &payload); err != nil {
			return models.MetricScore{}, fmt.Errorf("failed to parse assessment: %w", err)
		}
	}

	if payload.Score < 0 {
		payload.Score = 0
	}

	if payload.Score > 100 {
		payload.Score = 100
	}

	return models.MetricScore{Score: payload.Score, Reasoning: payload.Reasoning, Enabled: true}, nil
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}

	trimmed := strings.TrimPrefix(text, "```")

	if newline := strings.Index(trimmed, "\n"); newline != -1 {
		trimmed = trimmed[newline+1:]
	}

	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}
