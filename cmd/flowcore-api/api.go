// Package main provides the flowcore API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/flowcore/pkg/registry"
	"github.com/dukex/flowcore/pkg/services"
	"github.com/dukex/flowcore/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger     *slog.Logger
	runtime    *services.Runtime
	publishing *services.Publishing
	registry   *registry.Registry
	validate   *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	runtime *services.Runtime,
	publishing *services.Publishing,
	registry *registry.Registry,
) *API {
	return &API{
		logger:     logger,
		runtime:    runtime,
		publishing: publishing,
		registry:   registry,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.runtime, a.publishing, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("flowcore API")
	})

	web.Register(app, handlers)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
