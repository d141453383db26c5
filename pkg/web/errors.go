package web

import (
	"errors"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

// handleServiceError maps runtime errors to RFC 7807 problems.
func handleServiceError(c fiber.Ctx, err error) error {
	status, kind := fiber.StatusInternalServerError, "internal_error"

	switch {
	case errors.Is(err, models.ErrInvalidDefinition):
		status, kind = fiber.StatusUnprocessableEntity, "invalid_definition"
	case errors.Is(err, services.ErrStructuralFault):
		status, kind = fiber.StatusUnprocessableEntity, "structural_fault"
	case services.IsValidationError(err):
		status, kind = fiber.StatusBadRequest, "validation_error"
	case errors.Is(err, services.ErrStaleEvent):
		status, kind = fiber.StatusNotFound, "stale_event"
	case errors.Is(err, services.ErrDefinitionNotFound):
		status, kind = fiber.StatusNotFound, "definition_not_found"
	case errors.Is(err, services.ErrWorkflowNotFound):
		status, kind = fiber.StatusNotFound, "workflow_not_found"
	case services.IsConflictError(err):
		status, kind = fiber.StatusConflict, "conflict"
	}

	problem := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(kind)

	if status == fiber.StatusInternalServerError {
		problem = problem.WithError(err)
	} else {
		problem = problem.WithDetail(err.Error())
	}

	return c.Status(status).JSON(problem)
}
