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

func main() {
	logger := log.WithModule("runner")

	command := &cli.Command{
		Name:                  "cascade-runner",
		Usage:                 "Periodically sweep pending submissions through their cascades",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
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
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron expression for the sweep",
				Value:   "*/5 * * * *",
				Sources: cli.EnvVars("SCHEDULE"),
			},
			&cli.BoolFlag{
				Name:    "empty-only",
				Usage:   "Execute only nodes with no recorded output",
				Value:   true,
				Sources: cli.EnvVars("EMPTY_ONLY"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces for sweep runs",
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
			log.Setup("cascade-runner", command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Cascade runner")

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			collaborators := cmd.NewCollaborators(logger, store, cmd.CollaboratorConfig{
				CompletionURL: command.String("completion-url"),
				CompletionKey: command.String("completion-api-key"),
				RetrievalURL:  command.String("retrieval-url"),
				RetrievalKey:  command.String("retrieval-api-key"),
				RedisURL:      command.String("redis-url"),
				Evaluation:    eval.Settings{},
			})

			publisher := cmd.NewPublisher(command.String("event-bus"), "cascade-runner", logger)

			router := sink.NewRouter(logger, publisher, collaborators.Schemas,
				collaborators.CacheWriter(), store.PendingChangeRepository())

			var tracer trace.Tracer

			if command.Bool("tracing") {
				var err error

				tracer, err = otelhelper.NewTracer(ctx, "cascade-runner")
				if err != nil {
					return fmt.Errorf("failed to initialize tracing: %w", err)
				}
			}

			controller := engine.NewController(
				logger,
				store,
				cmd.NewRegistry(logger, collaborators),
				router,
				alerts.NewService(logger, store.AlertRepository()),
				tracer,
				engine.Config{},
			)

			runner := NewRunner(logger, controller, command.String("schedule"), command.Bool("empty-only"))

			return runner.Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
