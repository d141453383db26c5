// Package web provides the HTTP surface of the runtime.
package web

import (
	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/registry"
	"github.com/dukex/flowcore/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	runtime    *services.Runtime
	publishing *services.Publishing
	validator  *validator.Validate
	registry   *registry.Registry
}

func NewAPIHandlers(
	runtime *services.Runtime,
	publishing *services.Publishing,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		runtime:    runtime,
		publishing: publishing,
		validator:  validator,
		registry:   registry,
	}
}

func (h *APIHandlers) PublishDefinition(c fiber.Ctx) error {
	var definition models.WorkflowDefinition
	if err := c.Bind().JSON(&definition); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	published, err := h.publishing.Publish(c.Context(), &definition)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(published)
}

func (h *APIHandlers) GetDefinition(c fiber.Ctx) error {
	definition, err := h.publishing.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(definition)
}

// GetNodeOutcomes lists the exits a node of the latest definition version can take.
func (h *APIHandlers) GetNodeOutcomes(c fiber.Ctx) error {
	outcomes, err := h.runtime.Outcomes(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"outcomes": outcomes})
}

func (h *APIHandlers) ListDefinitions(c fiber.Ctx) error {
	definitions, err := h.publishing.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"definitions": definitions})
}

func (h *APIHandlers) StartWorkflow(c fiber.Ctx) error {
	var req StartWorkflowRequest
	if err := bindOptional(c, &req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	result, err := h.runtime.Start(c.Context(), services.StartRequest{
		DefinitionID:  c.Params("id"),
		StartNodeID:   req.StartNodeID,
		CorrelationID: req.CorrelationID,
		Parameters:    req.Parameters,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	state, err := h.runtime.State(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(state)
}

func (h *APIHandlers) GetWorkflowEvents(c fiber.Ctx) error {
	records, err := h.runtime.Events(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"events": records})
}

func (h *APIHandlers) ResumeWorkflow(c fiber.Ctx) error {
	var req ResumeWorkflowRequest
	if err := bindOptional(c, &req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	result, err := h.runtime.Resume(c.Context(), services.ResumeRequest{
		WorkflowID: c.Params("id"),
		NodeID:     c.Params("nodeId"),
		Parameters: req.Parameters,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) TerminateWorkflow(c fiber.Ctx) error {
	var req TerminateWorkflowRequest
	if err := bindOptional(c, &req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	result, err := h.runtime.Terminate(c.Context(), c.Params("id"), req.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) DispatchEvent(c fiber.Ctx) error {
	var req DispatchEventRequest
	if err := bindOptional(c, &req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	result, err := h.runtime.DispatchWorkflowEvent(c.Context(), services.DispatchRequest{
		EventID:     c.Params("id"),
		Parameters:  req.Parameters,
		IsCompleted: req.IsCompleted,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) DispatchCorrelation(c fiber.Ctx) error {
	var req DispatchEventRequest
	if err := bindOptional(c, &req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	results, err := h.runtime.DispatchByCorrelation(c.Context(), c.Params("correlationId"), req.Parameters)
	if err != nil && len(results) == 0 {
		return handleServiceError(c, err)
	}

	response := fiber.Map{"results": results}
	if err != nil {
		response["error"] = err.Error()
	}

	return c.JSON(response)
}

func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	factories := h.registry.GetAvailableNodes()
	nodeTypes := make([]NodeTypeResponse, 0, len(factories))

	for _, factory := range factories {
		nodeTypes = append(nodeTypes, NodeTypeResponse{
			ID:          factory.ID(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return c.JSON(fiber.Map{"node_types": nodeTypes})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, healthy := h.runtime.HealthCheck(c.Context())
	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "unhealthy",
			"message": message,
		})
	}

	return c.JSON(fiber.Map{
		"status":  "healthy",
		"message": message,
	})
}

// bindOptional decodes a JSON body when one was sent.
func bindOptional(c fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}

	return c.Bind().JSON(out)
}
