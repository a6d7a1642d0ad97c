package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tpcgrp/p6ebs-sync/internal/config"
	"github.com/tpcgrp/p6ebs-sync/internal/correlation"
	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/integration"
	"github.com/tpcgrp/p6ebs-sync/internal/logging"
	"github.com/tpcgrp/p6ebs-sync/internal/metrics"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
	"github.com/tpcgrp/p6ebs-sync/internal/reconcile"
	"github.com/tpcgrp/p6ebs-sync/internal/report"
	"github.com/tpcgrp/p6ebs-sync/internal/scheduler"
	"github.com/tpcgrp/p6ebs-sync/internal/validation"
)

// Deps are the services behind the operator API
type Deps struct {
	Runner       *integration.Runner
	Manager      *integration.Manager
	Scheduler    *scheduler.Scheduler
	Provider     *config.Provider
	Gate         *validation.Gate
	Workspace    *reconcile.Workspace
	Correlations *correlation.Store
	Reports      *report.Generator
	Logs         *logging.RingHook
	Metrics      *metrics.SyncMetrics
}

type Handler struct {
	Deps
	logger *logrus.Logger
}

func NewHandler(d Deps, logger *logrus.Logger) *Handler {
	return &Handler{Deps: d, logger: logger}
}

// Health reports liveness and the integrations currently running
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:             "ok",
		Time:               time.Now().UTC(),
		ActiveIntegrations: h.Runner.Active(),
	})
}

func (h *Handler) ListSchedules(c *gin.Context) {
	c.JSON(http.StatusOK, h.Scheduler.Schedules())
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	integrationType, ok := knownType(c)
	if !ok {
		return
	}

	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "intervalHours must be a positive number of hours")
		return
	}

	if err := h.Provider.Update(func(cfg *config.IntegrationConfig) {
		if cfg.SyncIntervals == nil {
			cfg.SyncIntervals = make(map[string]int)
		}
		cfg.SyncIntervals[integrationType] = req.IntervalHours
	}); err != nil {
		h.respondWithAppError(c, err, "Failed to save schedule")
		return
	}

	if err := h.Scheduler.Schedule(integrationType, time.Duration(req.IntervalHours)*time.Hour); err != nil {
		h.respondWithAppError(c, err, "Failed to schedule integration")
		return
	}

	info, _ := h.Scheduler.Info(integrationType)
	c.JSON(http.StatusOK, info)
}

func (h *Handler) DeleteSchedule(c *gin.Context) {
	integrationType, ok := knownType(c)
	if !ok {
		return
	}
	h.Scheduler.Cancel(integrationType)
	c.Status(http.StatusNoContent)
}

func (h *Handler) RunIntegration(c *gin.Context) {
	integrationType, ok := knownType(c)
	if !ok {
		return
	}

	handle, err := h.Runner.Submit(integrationType)
	if err != nil {
		h.respondWithAppError(c, err, "Failed to start integration")
		return
	}
	h.Scheduler.Track(integrationType, handle.StartedAt, handle)

	c.JSON(http.StatusAccepted, RunResponse{
		ID:              handle.ID,
		IntegrationType: handle.IntegrationType,
		StartedAt:       handle.StartedAt,
	})
}

func (h *Handler) GetRun(c *gin.Context) {
	handle, ok := h.Runner.Handle(c.Param("id"))
	if !ok {
		respondWithError(c, http.StatusNotFound, "Run not found")
		return
	}

	resp := RunResponse{
		ID:              handle.ID,
		IntegrationType: handle.IntegrationType,
		StartedAt:       handle.StartedAt,
	}
	if progress, ok := handle.Progress(); ok {
		resp.Progress = &progress
	}
	if result, finished := handle.Status(); finished {
		resp.Finished = true
		resp.Result = result
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) CancelIntegration(c *gin.Context) {
	integrationType, ok := knownType(c)
	if !ok {
		return
	}
	if !h.Runner.Cancel(integrationType) {
		respondWithError(c, http.StatusNotFound, fmt.Sprintf("No running session for %s", integrationType))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
}

func (h *Handler) History(c *gin.Context) {
	integrationType := c.Query("type")
	if integrationType != "" {
		integrationType = config.CanonicalType(integrationType)
	}

	records, err := h.Manager.History(c.Request.Context(), integrationType)
	if err != nil {
		h.respondWithAppError(c, err, "Failed to load history")
		return
	}
	integration.SortByStartDesc(records)
	c.JSON(http.StatusOK, records)
}

func (h *Handler) Compare(c *gin.Context) {
	entityType := c.Param("entityType")

	records, err := h.Runner.Compare(c.Request.Context(), entityType)
	if err != nil {
		h.respondWithAppError(c, err, "Failed to compare entities")
		return
	}

	set := h.Workspace.Put(entityType, records)
	if h.Metrics != nil {
		h.Metrics.ObserveDiscrepancies(entityType, set.Summary)
	}
	c.JSON(http.StatusOK, set)
}

func (h *Handler) ResolveRecord(c *gin.Context) {
	set, err := h.Workspace.Get(c.Param("id"))
	if err != nil {
		h.respondWithAppError(c, err, "Discrepancy set not found")
		return
	}

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid resolve request")
		return
	}

	rec, err := set.Resolve(c.Param("entityId"), req.DiscrepancyType, req.Fields, req.Action, req.CustomValue)
	if err != nil {
		h.respondWithAppError(c, err, "Failed to resolve discrepancy")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) CommitSet(c *gin.Context) {
	set, err := h.Workspace.Get(c.Param("id"))
	if err != nil {
		h.respondWithAppError(c, err, "Discrepancy set not found")
		return
	}

	result, err := set.Commit(c.Request.Context(), h.Runner.Committer())
	if err != nil {
		h.respondWithAppError(c, err, "Failed to commit discrepancy set")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"set_id":  set.ID,
		"applied": result.Applied,
		"failed":  result.Failed,
	}).Info("Committed discrepancy set")
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ExportSet(c *gin.Context) {
	set, err := h.Workspace.Get(c.Param("id"))
	if err != nil {
		h.respondWithAppError(c, err, "Discrepancy set not found")
		return
	}

	filename := fmt.Sprintf("%s_reconciliation_%s.xlsx", set.EntityType, set.CreatedAt.Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := report.StreamReconciliationWorkbook(c.Writer, set.Snapshot()); err != nil {
		h.logger.WithError(err).Error("Failed to write workbook")
		respondWithError(c, http.StatusInternalServerError, "Failed to write workbook")
	}
}

func (h *Handler) Validate(c *gin.Context) {
	integrationType, ok := knownType(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Gate.Run(c.Request.Context(), integrationType))
}

func (h *Handler) LookupCorrelation(c *gin.Context) {
	system := models.System(c.Param("system"))
	if !system.Valid() {
		respondWithError(c, http.StatusBadRequest, "system must be P6 or EBS")
		return
	}

	entityType, id := c.Param("entityType"), c.Param("id")
	other, ok := h.Correlations.Lookup(entityType, system, id)
	if !ok {
		respondWithError(c, http.StatusNotFound, "No correlation found")
		return
	}

	c.JSON(http.StatusOK, CorrelationResponse{
		EntityType:        entityType,
		System:            system,
		ID:                id,
		CounterpartSystem: system.Other(),
		CounterpartID:     other,
	})
}

func (h *Handler) ListReports(c *gin.Context) {
	reports, err := h.Reports.List()
	if err != nil {
		h.respondWithAppError(c, err, "Failed to list reports")
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (h *Handler) GenerateSummaryReport(c *gin.Context) {
	info, err := h.Reports.GenerateSummary(c.Request.Context())
	if err != nil {
		h.respondWithAppError(c, err, "Failed to generate report")
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (h *Handler) RecentLogs(c *gin.Context) {
	if h.Logs == nil {
		c.JSON(http.StatusOK, []logging.Entry{})
		return
	}
	c.JSON(http.StatusOK, h.Logs.Recent(c.Query("level")))
}

// knownType resolves the :type path parameter, answering 400 for unknown types
func knownType(c *gin.Context) (string, bool) {
	t := config.CanonicalType(c.Param("type"))
	for _, known := range config.KnownIntegrationTypes {
		if t == known {
			return t, true
		}
	}
	respondWithError(c, http.StatusBadRequest, fmt.Sprintf("Unknown integration type %q", c.Param("type")))
	return "", false
}

func (h *Handler) respondWithAppError(c *gin.Context, err error, message string) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.WithError(err).Error(message)
		respondWithError(c, code, message)
		return
	}
	respondWithError(c, code, err.Error())
}

func statusFor(err error) int {
	if apperrors.IsSyncInProgress(err) {
		return http.StatusConflict
	}
	switch apperrors.TypeOf(err) {
	case apperrors.ErrNotFound, apperrors.ErrMappingGap:
		return http.StatusNotFound
	case apperrors.ErrInvalidInput, apperrors.ErrScheduling:
		return http.StatusBadRequest
	case apperrors.ErrConnection:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, ErrorResponse{Error: message})
}
