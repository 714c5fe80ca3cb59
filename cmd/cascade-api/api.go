// Package main provides the Cascade API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/cascadehq/cascade/pkg/engine"
	"github.com/cascadehq/cascade/pkg/persistence"
	"github.com/cascadehq/cascade/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger     *slog.Logger
	controller *engine.Controller
	store      persistence.Persistence
	validate   *validator.Validate
}

func NewAPI(logger *slog.Logger, controller *engine.Controller, store persistence.Persistence) *API {
	return &API{
		logger:     logger,
		controller: controller,
		store:      store,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewHandlers(a.logger, a.controller, a.store, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Cascade API")
	})

	app.Post("/cascades", handlers.TriggerCascade)
	app.Get("/cascades/:id/report", handlers.GetReport)
	app.Get("/workflows/:workflowID/nodes/:nodeID/evaluations", handlers.GetEvaluations)
	app.Get("/alerts", handlers.ListAlerts)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
