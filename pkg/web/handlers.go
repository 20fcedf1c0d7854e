// Package web provides the HTTP API for workflows, node types, schedules and
// synchronous runs.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/registry"
	"github.com/dukex/nodeflow/pkg/schedule"
	"github.com/dukex/nodeflow/pkg/workflow"
)

type APIHandlers struct {
	workflows *workflow.Repository
	executor  *workflow.Executor
	schedules *schedule.Service
	registry  *registry.Registry
	validator *validator.Validate
	logger    *slog.Logger
}

func NewAPIHandlers(
	workflows *workflow.Repository,
	executor *workflow.Executor,
	schedules *schedule.Service,
	registry *registry.Registry,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		workflows: workflows,
		executor:  executor,
		schedules: schedules,
		registry:  registry,
		validator: validator,
		logger:    logger.With("module", "web"),
	}
}

// Register mounts every route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/nodes", h.GetNodeTypes)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/publish", h.PublishWorkflow)
	w.Post("/:id/unpublish", h.UnpublishWorkflow)
	w.Post("/:id/run", h.RunWorkflow)

	w.Put("/:workflowId/nodes/:nodeId/schedule", h.SaveSchedule)
	w.Get("/:workflowId/nodes/:nodeId/schedule", h.GetSchedule)

	s := router.Group("/schedules")
	s.Post("/:id/enable", h.EnableSchedule)
	s.Post("/:id/disable", h.DisableSchedule)
	s.Delete("/:id", h.DeleteSchedule)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.workflows.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Nodeflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Nodeflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	factories := h.registry.Factories()

	nodeTypes := make([]NodeTypeResponse, 0, len(factories))
	for _, f := range factories {
		nodeTypes = append(nodeTypes, NodeTypeResponse{
			ID:          f.ID(),
			Name:        f.Name(),
			Description: f.Description(),
			Schema:      f.Schema(),
		})
	}

	return c.JSON(nodeTypes)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	var (
		workflows []*models.Workflow
		err       error
	)

	if c.Query("status") == string(models.WorkflowStatusPublished) {
		workflows, err = h.workflows.FetchPublished(c.Context())
	} else {
		workflows, err = h.workflows.FetchAll(c.Context())
	}

	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	wf, err := h.workflows.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflows.Create(c.Context(), req.workflow())
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateWorkflow replaces the graph, variables and metadata of a workflow.
// The status is managed by publish and unpublish.
func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflows.Update(c.Context(), c.Params("id"), req.workflow())
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(updated)
}

// DeleteWorkflow removes a workflow and the schedules of its trigger nodes.
func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	ctx := c.Context()
	id := c.Params("id")

	wf, err := h.workflows.FetchByID(ctx, id)
	if err != nil {
		return handleError(c, err)
	}

	if err := h.workflows.Delete(ctx, id); err != nil {
		return handleError(c, err)
	}

	for _, node := range wf.TriggerNodes() {
		sched, err := h.schedules.Get(ctx, wf.ID, node.ID)
		if err != nil {
			continue
		}

		if err := h.schedules.Delete(ctx, sched.ID); err != nil {
			h.logger.WarnContext(ctx, "Failed to delete schedule of deleted workflow",
				"workflow_id", wf.ID, "schedule_id", sched.ID, "error", err)
		}
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PublishWorkflow(c fiber.Ctx) error {
	published, err := h.workflows.Publish(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(published)
}

func (h *APIHandlers) UnpublishWorkflow(c fiber.Ctx) error {
	unpublished, err := h.workflows.Unpublish(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(unpublished)
}

// RunWorkflow runs a published workflow and waits for the result. A run that
// ends on a node failure answers 422 with the partial result.
func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	var req RunWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	wf, err := h.workflows.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	if err := workflow.Executable(wf); err != nil {
		return handleError(c, err)
	}

	result, err := h.executor.Run(c.Context(), wf, workflow.RunRequest{
		TriggerNodeID: req.TriggerNodeID,
		TriggerData:   req.Data,
		Variables:     req.Variables,
		CallerID:      c.Get("X-Caller-Id"),
	})

	var runErr *workflow.RunError
	if errors.As(err, &runErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(RunWorkflowResponse{
			RunResult: result,
			Error:     runErr.Error(),
		})
	}

	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(RunWorkflowResponse{RunResult: result})
}

func (h *APIHandlers) SaveSchedule(c fiber.Ctx) error {
	var req ScheduleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflowID := c.Params("workflowId")
	nodeID := c.Params("nodeId")

	wf, err := h.workflows.FetchByID(c.Context(), workflowID)
	if err != nil {
		return handleError(c, err)
	}

	node := wf.NodeByID(nodeID)
	if node == nil {
		return notFound(c, "node_not_found", "node not found")
	}

	if node.Type != models.NodeTypeTriggerScheduler {
		return badRequest(c, "node "+nodeID+" is not a scheduler trigger")
	}

	saved, err := h.schedules.Save(c.Context(), req.schedule(workflowID, nodeID))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(saved)
}

func (h *APIHandlers) GetSchedule(c fiber.Ctx) error {
	sched, err := h.schedules.Get(c.Context(), c.Params("workflowId"), c.Params("nodeId"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(sched)
}

func (h *APIHandlers) EnableSchedule(c fiber.Ctx) error {
	return h.setScheduleEnabled(c, true)
}

func (h *APIHandlers) DisableSchedule(c fiber.Ctx) error {
	return h.setScheduleEnabled(c, false)
}

func (h *APIHandlers) setScheduleEnabled(c fiber.Ctx, enabled bool) error {
	sched, err := h.schedules.SetEnabled(c.Context(), c.Params("id"), enabled)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(sched)
}

func (h *APIHandlers) DeleteSchedule(c fiber.Ctx) error {
	if err := h.schedules.Delete(c.Context(), c.Params("id")); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
