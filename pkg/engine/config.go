package engine

import "github.com/cascadehq/cascade/pkg/eval"

// Config is the immutable per-process configuration snapshot the controller
// runs with. It is built once at startup and passed down explicitly.
type Config struct {
	// Evaluation toggles and model for output scoring.
	Evaluation eval.Settings

	// EvaluationRetention bounds per-node evaluation history.
	EvaluationRetention int

	// UpsertRetries bounds the re-read-and-retry loop on version conflicts.
	UpsertRetries int
}

const (
	defaultEvaluationRetention = 20
	defaultUpsertRetries       = 3
)

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.EvaluationRetention <= 0 {
		c.EvaluationRetention = defaultEvaluationRetention
	}

	if c.UpsertRetries <= 0 {
		c.UpsertRetries = defaultUpsertRetries
	}

	return c
}
