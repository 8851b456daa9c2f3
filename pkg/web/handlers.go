// Package web provides the HTTP handlers of the fluxo API.
package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/gustolabs/fluxo/pkg/eventbus"
	"github.com/gustolabs/fluxo/pkg/models"
	"github.com/gustolabs/fluxo/pkg/persistence"
	"github.com/gustolabs/fluxo/pkg/services"
	"github.com/gustolabs/fluxo/pkg/validation"
)

const (
	defaultExecutionLimit = 50
	maxExecutionLimit     = 500
)

// APIHandlers aggregates the services behind the HTTP surface.
type APIHandlers struct {
	logger    *slog.Logger
	flows     *services.Flow
	templates *services.Template
	triggers  *services.Trigger
}

// NewAPIHandlers creates the handler set over a persistence layer and an
// event publisher for manual triggering.
func NewAPIHandlers(logger *slog.Logger, persist persistence.Persistence, publisher eventbus.EventPublisher) *APIHandlers {
	validator := validation.NewValidator()
	flows := services.NewFlow(persist, validator)

	return &APIHandlers{
		logger:    logger.With("module", "api"),
		flows:     flows,
		templates: services.NewTemplate(persist, validator),
		triggers:  services.NewTrigger(flows, validator, publisher),
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.flows.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Fluxo API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Fluxo API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) ListFlows(c fiber.Ctx) error {
	flows, err := h.flows.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(flows)
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	flow, err := h.flows.Fetch(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var flow models.Flow
	if err := c.Bind().JSON(&flow); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	created, err := h.flows.Create(c.Context(), &flow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var flow models.Flow
	if err := c.Bind().JSON(&flow); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, err := h.flows.Update(c.Context(), id, &flow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

// UpdateFlowStatusRequest is the body of PATCH /flows/:id/status.
type UpdateFlowStatusRequest struct {
	Status models.FlowStatus `json:"status"`
}

func (h *APIHandlers) UpdateFlowStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var req UpdateFlowStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, err := h.flows.SetStatus(c.Context(), id, req.Status)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	if err := h.flows.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ListFlowExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	limit := defaultExecutionLimit

	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return badRequest(c, "limit must be a positive integer")
		}

		limit = min(parsed, maxExecutionLimit)
	}

	records, err := h.flows.Executions(c.Context(), id, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(records)
}

func (h *APIHandlers) ExecuteFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow ID is required")
	}

	var execCtx models.ExecutionContext
	if err := c.Bind().JSON(&execCtx); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	event, err := h.triggers.Fire(c.Context(), id, &execCtx)
	if err != nil {
		return handleServiceError(c, err)
	}

	h.logger.InfoContext(c.Context(), "Manual trigger fired",
		"flow_id", id, "event_id", event.ID, "customer_email", execCtx.CustomerEmail)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"event_id": event.ID,
		"flow_id":  id,
		"status":   "accepted",
	})
}

func (h *APIHandlers) ListTemplates(c fiber.Ctx) error {
	templates, err := h.templates.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(templates)
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	tmpl, err := h.templates.Fetch(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(tmpl)
}

func (h *APIHandlers) CreateTemplate(c fiber.Ctx) error {
	var tmpl models.Template
	if err := c.Bind().JSON(&tmpl); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	saved, err := h.templates.Save(c.Context(), &tmpl)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (h *APIHandlers) UpdateTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	var tmpl models.Template
	if err := c.Bind().JSON(&tmpl); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if _, err := h.templates.Fetch(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	tmpl.ID = id

	saved, err := h.templates.Save(c.Context(), &tmpl)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(saved)
}
