// Package main provides the Areaflow API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/areaflow/areaflow/pkg/persistence"
	"github.com/areaflow/areaflow/pkg/registry"
	"github.com/areaflow/areaflow/pkg/runner"
	"github.com/areaflow/areaflow/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	runner      *runner.Runner
	validate    *validator.Validate
}

func NewAPI(
	log *slog.Logger,
	store persistence.Persistence,
	reg *registry.Registry,
	run *runner.Runner,
) *API {
	return &API{
		logger:      log,
		persistence: store,
		registry:    reg,
		runner:      run,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.persistence, a.runner, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Areaflow API")
	})

	areas := app.Group("/areas")
	areas.Get("/", handlers.GetAreas)
	areas.Post("/", handlers.CreateArea)
	areas.Get("/:id", handlers.GetArea)
	areas.Patch("/:id", handlers.UpdateArea)
	areas.Delete("/:id", handlers.DeleteArea)
	areas.Post("/:id/run", handlers.RunArea)
	areas.Get("/:id/executions", handlers.GetAreaExecutions)

	app.Get("/services", handlers.GetServices)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
