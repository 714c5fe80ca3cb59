// Package cmd provides common initialization for the cascade binaries.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/cascadehq/cascade/pkg/cache"
	"github.com/cascadehq/cascade/pkg/eval"
	"github.com/cascadehq/cascade/pkg/nodes"
	"github.com/cascadehq/cascade/pkg/persistence"
	"github.com/cascadehq/cascade/pkg/providers/completion"
	"github.com/cascadehq/cascade/pkg/providers/webretrieval"
	"github.com/cascadehq/cascade/pkg/schema"
	"github.com/cascadehq/cascade/pkg/sink"
	"github.com/redis/go-redis/v9"
)

// CollaboratorConfig carries the external service endpoints the node
// executors call out to. Empty retrieval or redis settings disable the
// matching features.
type CollaboratorConfig struct {
	CompletionURL string
	CompletionKey string
	RetrievalURL  string
	RetrievalKey  string
	RedisURL      string
	Evaluation    eval.Settings
}

// Collaborators is the assembled collaborator set plus the pieces the sink
// router shares with the executors.
type Collaborators struct {
	Executors nodes.Collaborators
	Schemas   *schema.Service
	Caches    *cache.Client
}

// NewCollaborators builds every external collaborator from configuration.
func NewCollaborators(logger *slog.Logger, store persistence.Persistence, cfg CollaboratorConfig) Collaborators {
	schemas := schema.NewService(logger, store.SchemaRepository(), store.PendingChangeRepository())

	c := Collaborators{
		Executors: nodes.Collaborators{
			Completion: completion.NewClient(cfg.CompletionURL, cfg.CompletionKey),
			Schemas:    schemas,
			Frameworks: schema.NewFrameworks(store.FrameworkRepository()),
		},
		Schemas: schemas,
	}

	if cfg.RetrievalURL != "" {
		c.Executors.Retriever = webretrieval.NewClient(cfg.RetrievalURL, cfg.RetrievalKey)
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			panic(fmt.Errorf("failed to parse redis URL: %w", err))
		}

		c.Caches = cache.NewClient(redis.NewClient(opts))
		c.Executors.Caches = c.Caches
	}

	if cfg.Evaluation.Enabled() {
		c.Executors.Evaluator = eval.NewEvaluator(logger, c.Executors.Completion, cfg.Evaluation)
	}

	return c
}

// CacheWriter returns the shared-cache sink, nil when no redis is
// configured.
func (c Collaborators) CacheWriter() sink.CacheWriter {
	if c.Caches == nil {
		return nil
	}

	return c.Caches
}

// NewRegistry builds the executor dispatch table over the collaborators.
func NewRegistry(logger *slog.Logger, c Collaborators) nodes.Registry {
	registry, err := nodes.NewRegistry(logger, c.Executors)
	if err != nil {
		panic(fmt.Errorf("failed to build node registry: %w", err))
	}

	return registry
}
