package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cascadehq/cascade/pkg/alerts"
	"github.com/cascadehq/cascade/pkg/cmd"
	"github.com/cascadehq/cascade/pkg/engine"
	"github.com/cascadehq/cascade/pkg/eval"
	"github.com/cascadehq/cascade/pkg/log"
	"github.com/cascadehq/cascade/pkg/otelhelper"
	"github.com/cascadehq/cascade/pkg/sink"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = 9190

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "cascade-api",
		Usage:                 "Trigger and inspect workflow cascades",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL (postgres://... or a file store root)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Sink event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:     "completion-url",
				Usage:    "Base URL of the completion provider",
				Required: true,
				Sources:  cli.EnvVars("COMPLETION_URL"),
			},
			&cli.StringFlag{
				Name:    "completion-api-key",
				Usage:   "API key for the completion provider",
				Sources: cli.EnvVars("COMPLETION_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "retrieval-url",
				Usage:   "Base URL of the web retrieval provider",
				Sources: cli.EnvVars("RETRIEVAL_URL"),
			},
			&cli.StringFlag{
				Name:    "retrieval-api-key",
				Usage:   "API key for the web retrieval provider",
				Sources: cli.EnvVars("RETRIEVAL_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL backing the shared caches",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.BoolFlag{
				Name:    "evaluation",
				Usage:   "Score prompt outputs with the quality evaluator",
				Sources: cli.EnvVars("EVALUATION"),
			},
			&cli.StringFlag{
				Name:    "evaluation-model",
				Usage:   "Model used for output evaluation",
				Sources: cli.EnvVars("EVALUATION_MODEL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces for cascade runs",
				Sources: cli.EnvVars("TRACING"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup("cascade-api", command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Cascade API")

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			evaluation := eval.Settings{}
			if command.Bool("evaluation") {
				evaluation = eval.Settings{
					Groundedness: true,
					DataQuality:  true,
					Scope:        true,
					Flagging:     true,
					Model:        command.String("evaluation-model"),
				}
			}

			collaborators := cmd.NewCollaborators(logger, store, cmd.CollaboratorConfig{
				CompletionURL: command.String("completion-url"),
				CompletionKey: command.String("completion-api-key"),
				RetrievalURL:  command.String("retrieval-url"),
				RetrievalKey:  command.String("retrieval-api-key"),
				RedisURL:      command.String("redis-url"),
				Evaluation:    evaluation,
			})

			publisher := cmd.NewPublisher(command.String("event-bus"), "cascade-api", logger)
			registry := cmd.NewRegistry(logger, collaborators)

			router := sink.NewRouter(logger, publisher, collaborators.Schemas,
				collaborators.CacheWriter(), store.PendingChangeRepository())

			var tracer trace.Tracer

			if command.Bool("tracing") {
				var err error

				tracer, err = otelhelper.NewTracer(ctx, "cascade-api")
				if err != nil {
					return fmt.Errorf("failed to initialize tracing: %w", err)
				}
			}

			controller := engine.NewController(
				logger,
				store,
				registry,
				router,
				alerts.NewService(logger, store.AlertRepository()),
				tracer,
				engine.Config{Evaluation: evaluation},
			)

			api := NewAPI(logger, controller, store)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
