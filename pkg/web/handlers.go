package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/areaflow/areaflow/pkg/models"
	"github.com/areaflow/areaflow/pkg/persistence"
	"github.com/areaflow/areaflow/pkg/registry"
	"github.com/areaflow/areaflow/pkg/runner"
)

type APIHandlers struct {
	persistence persistence.Persistence
	runner      *runner.Runner
	validator   *validator.Validate
	registry    *registry.Registry
}

func NewAPIHandlers(
	store persistence.Persistence,
	run *runner.Runner,
	validate *validator.Validate,
	reg *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		persistence: store,
		runner:      run,
		validator:   validate,
		registry:    reg,
	}
}

func (h *APIHandlers) GetAreas(c fiber.Ctx) error {
	areas, err := h.persistence.AreaRepository().Areas(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"areas":       areas,
		"total_count": len(areas),
	})
}

func (h *APIHandlers) GetArea(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Area ID is required")
	}

	area, err := h.persistence.AreaRepository().AreaByID(c.Context(), id)
	if err != nil {
		if persistence.IsAreaNotFound(err) {
			return notFound(c, "Area not found")
		}

		return internalError(c, err)
	}

	return c.JSON(area)
}

func (h *APIHandlers) CreateArea(c fiber.Ctx) error {
	var req CreateAreaRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if len(req.Steps) == 0 && req.ReactionService == "" {
		return badRequest(c, "Area requires steps or a reaction")
	}

	area := &models.Area{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		Name:            req.Name,
		Enabled:         req.Enabled,
		TriggerService:  req.TriggerService,
		TriggerAction:   req.TriggerAction,
		TriggerConfig:   req.TriggerConfig,
		ReactionService: req.ReactionService,
		ReactionAction:  req.ReactionAction,
		ReactionConfig:  req.ReactionConfig,
		Steps:           req.Steps,
	}

	if err := h.persistence.AreaRepository().SaveArea(c.Context(), area); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(area)
}

func (h *APIHandlers) UpdateArea(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Area ID is required")
	}

	var req UpdateAreaRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.persistence.AreaRepository().AreaByID(c.Context(), id)
	if err != nil {
		if persistence.IsAreaNotFound(err) {
			return notFound(c, "Area not found")
		}

		return internalError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}

	if req.TriggerConfig != nil {
		existing.TriggerConfig = req.TriggerConfig
	}

	if req.Steps != nil {
		existing.Steps = req.Steps
	}

	if err := h.persistence.AreaRepository().SaveArea(c.Context(), existing); err != nil {
		return internalError(c, err)
	}

	return c.JSON(existing)
}

func (h *APIHandlers) DeleteArea(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Area ID is required")
	}

	if _, err := h.persistence.AreaRepository().AreaByID(c.Context(), id); err != nil {
		if persistence.IsAreaNotFound(err) {
			return notFound(c, "Area not found")
		}

		return internalError(c, err)
	}

	if err := h.persistence.AreaRepository().DeleteArea(c.Context(), id); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RunArea executes an area synchronously with an optional trigger payload
// and returns the resulting execution log record.
func (h *APIHandlers) RunArea(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Area ID is required")
	}

	var req RunAreaRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	area, err := h.persistence.AreaRepository().AreaByID(c.Context(), id)
	if err != nil {
		if persistence.IsAreaNotFound(err) {
			return notFound(c, "Area not found")
		}

		return internalError(c, err)
	}

	record, err := h.runner.Fire(c.Context(), area, req.TriggerData)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) GetAreaExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Area ID is required")
	}

	if _, err := h.persistence.AreaRepository().AreaByID(c.Context(), id); err != nil {
		if persistence.IsAreaNotFound(err) {
			return notFound(c, "Area not found")
		}

		return internalError(c, err)
	}

	records, err := h.persistence.ExecutionLogRepository().ExecutionLogsByArea(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  records,
		"total_count": len(records),
	})
}

// GetServices lists the registered service.action handler keys.
func (h *APIHandlers) GetServices(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"services": h.registry.Services(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
