package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/dukex/nodeflow/pkg/persistence"
	"github.com/dukex/nodeflow/pkg/schedule"
	"github.com/dukex/nodeflow/pkg/workflow"
)

func problem(c fiber.Ctx, status int, problemType, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func notFound(c fiber.Ctx, problemType, detail string) error {
	return problem(c, fiber.StatusNotFound, problemType, detail)
}

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

// handleError maps domain errors to problem responses.
func handleError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "workflow_not_found", "workflow not found")
	case persistence.IsScheduleNotFound(err):
		return notFound(c, "schedule_not_found", "schedule not found")
	case errors.Is(err, workflow.ErrTriggerNotFound):
		return notFound(c, "node_not_found", err.Error())
	case errors.Is(err, workflow.ErrInvalidWorkflow), errors.Is(err, schedule.ErrInvalidSchedule):
		return badRequest(c, err.Error())
	case errors.Is(err, workflow.ErrNotExecutable):
		return problem(c, fiber.StatusConflict, "not_executable", err.Error())
	default:
		return internalError(c, err)
	}
}
