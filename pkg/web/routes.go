package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register mounts every route of the API on app.
func Register(app *fiber.App, handlers *APIHandlers) {
	d := app.Group("/definitions")
	d.Get("/", handlers.ListDefinitions)
	d.Post("/", handlers.PublishDefinition)
	d.Get("/:id", handlers.GetDefinition)
	d.Get("/:id/nodes/:nodeId/outcomes", handlers.GetNodeOutcomes)
	d.Post("/:id/start", handlers.StartWorkflow)

	w := app.Group("/workflows")
	w.Get("/:id", handlers.GetWorkflow)
	w.Get("/:id/events", handlers.GetWorkflowEvents)
	w.Post("/:id/nodes/:nodeId/resume", handlers.ResumeWorkflow)
	w.Post("/:id/terminate", handlers.TerminateWorkflow)

	app.Post("/events/:id/dispatch", handlers.DispatchEvent)
	app.Post("/correlations/:correlationId/dispatch", handlers.DispatchCorrelation)

	app.Get("/node-types", handlers.GetNodeTypes)
	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
