package web

import (
	"log/slog"
	"strconv"
	"sync"

	"github.com/cascadehq/cascade/pkg/engine"
	"github.com/cascadehq/cascade/pkg/eval"
	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const defaultAlertLimit = 100

type Handlers struct {
	logger     *slog.Logger
	controller *engine.Controller
	store      persistence.Persistence
	validator  *validator.Validate

	// reports retains the outcome of runs triggered through this process,
	// keyed by submission id.
	mu      sync.RWMutex
	reports map[string]*engine.RunReport
}

func NewHandlers(
	logger *slog.Logger,
	controller *engine.Controller,
	store persistence.Persistence,
	validator *validator.Validate,
) *Handlers {
	return &Handlers{
		logger:     logger.With("module", "web"),
		controller: controller,
		store:      store,
		validator:  validator,
		reports:    make(map[string]*engine.RunReport),
	}
}

// TriggerCascade handles POST /cascades: a tenant-scoped trigger, or a bulk
// sweep over pending submissions when all_tenants is set.
func (h *Handlers) TriggerCascade(c fiber.Ctx) error {
	var req TriggerCascadeRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if req.AllTenants {
		reports, err := h.controller.RunPending(c.Context(), req.EmptyOnly)
		if err != nil {
			return handleStoreError(c, err)
		}

		h.retain(reports...)

		return c.JSON(fiber.Map{
			"runs":    len(reports),
			"reports": reports,
		})
	}

	submissionID := req.SubmissionID

	if submissionID == "" {
		payload := req.Payload
		if payload == "" {
			payload = models.TriggerMarker
		}

		submission := &models.Submission{
			TenantID: req.TenantID,
			Source:   req.Source,
			Payload:  payload,
		}

		if err := h.store.SubmissionRepository().Save(c.Context(), submission); err != nil {
			return handleStoreError(c, err)
		}

		submissionID = submission.ID
	}

	report, err := h.controller.Run(c.Context(), engine.TriggerRequest{
		TenantID:        req.TenantID,
		SubmissionID:    submissionID,
		WorkflowID:      req.WorkflowID,
		StartFromNodeID: req.StartFromNodeID,
		Force:           req.Force,
		EmptyOnly:       req.EmptyOnly,
	})
	if err != nil {
		return handleStoreError(c, err)
	}

	h.retain(report)

	return c.Status(fiber.StatusCreated).JSON(report)
}

// GetReport handles GET /cascades/:id/report. Reports live only as long as
// the process that ran them; a known submission without one returns the
// submission status instead.
func (h *Handlers) GetReport(c fiber.Ctx) error {
	id := c.Params("id")

	h.mu.RLock()
	report, ok := h.reports[id]
	h.mu.RUnlock()

	if ok {
		return c.JSON(report)
	}

	submission, err := h.store.SubmissionRepository().GetByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(fiber.Map{
		"tenant_id":     submission.TenantID,
		"submission_id": submission.ID,
		"status":        submission.Status,
	})
}

// ListAlerts handles GET /alerts.
func (h *Handlers) ListAlerts(c fiber.Ctx) error {
	limit := defaultAlertLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			return badRequest(c, "Invalid limit: "+limitStr)
		}

		limit = parsed
	}

	alerts, err := h.store.AlertRepository().List(c.Context(), limit)
	if err != nil {
		return internalError(c, err)
	}

	responses := make([]AlertResponse, 0, len(alerts))
	for _, alert := range alerts {
		responses = append(responses, toAlertResponse(alert))
	}

	return c.JSON(fiber.Map{"alerts": responses})
}

// GetEvaluations handles GET /workflows/:workflowID/nodes/:nodeID/evaluations:
// the node's retained evaluation history with its trend summary.
func (h *Handlers) GetEvaluations(c fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id is required")
	}

	workflowID := c.Params("workflowID")
	nodeID := c.Params("nodeID")

	history, err := h.store.EvaluationRepository().History(c.Context(), tenantID, workflowID, nodeID)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(EvaluationHistoryResponse{
		TenantID:   tenantID,
		WorkflowID: workflowID,
		NodeID:     nodeID,
		Trend:      eval.Trend(history),
		History:    history,
	})
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(c fiber.Ctx) error {
	if err := h.store.HealthCheck(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}

func (h *Handlers) retain(reports ...*engine.RunReport) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, report := range reports {
		h.reports[report.SubmissionID] = report
	}
}
