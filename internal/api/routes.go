package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title P6-EBS Sync API
// @version 1.0
// @description Operator API for synchronizing Primavera P6 and Oracle EBS
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// SetupRouter configures the API routes
func SetupRouter(h *Handler, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	{
		// @Summary Health check
		// @Tags system
		// @Produce json
		// @Success 200 {object} HealthResponse
		// @Router /health [get]
		v1.GET("/health", h.Health)

		integrations := v1.Group("/integrations")
		{
			// @Summary List schedules
			// @Description Get the recurring schedule of every integration type
			// @Tags integrations
			// @Produce json
			// @Success 200 {array} models.ScheduleInfo
			// @Router /integrations/schedules [get]
			integrations.GET("/schedules", h.ListSchedules)

			// @Summary Sync history
			// @Description Get finished sessions, newest first, optionally for one type
			// @Tags integrations
			// @Produce json
			// @Param type query string false "Integration type"
			// @Success 200 {array} models.SyncRecord
			// @Failure 500 {object} ErrorResponse
			// @Router /integrations/history [get]
			integrations.GET("/history", h.History)

			// @Summary Get run
			// @Description Get the state of a submitted run
			// @Tags integrations
			// @Produce json
			// @Param id path string true "Run ID"
			// @Success 200 {object} RunResponse
			// @Failure 404 {object} ErrorResponse
			// @Router /integrations/runs/{id} [get]
			integrations.GET("/runs/:id", h.GetRun)

			// @Summary Update schedule
			// @Description Persist a new interval and reschedule the integration type
			// @Tags integrations
			// @Accept json
			// @Produce json
			// @Param type path string true "Integration type"
			// @Param request body ScheduleRequest true "Interval"
			// @Success 200 {object} models.ScheduleInfo
			// @Failure 400 {object} ErrorResponse
			// @Router /integrations/{type}/schedule [put]
			integrations.PUT("/:type/schedule", h.UpdateSchedule)

			// @Summary Cancel schedule
			// @Tags integrations
			// @Param type path string true "Integration type"
			// @Success 204 "No Content"
			// @Failure 400 {object} ErrorResponse
			// @Router /integrations/{type}/schedule [delete]
			integrations.DELETE("/:type/schedule", h.DeleteSchedule)

			// @Summary Run integration
			// @Description Start a sync session in the background
			// @Tags integrations
			// @Produce json
			// @Param type path string true "Integration type"
			// @Success 202 {object} RunResponse
			// @Failure 400 {object} ErrorResponse
			// @Failure 409 {object} ErrorResponse "Already in progress"
			// @Router /integrations/{type}/run [post]
			integrations.POST("/:type/run", h.RunIntegration)

			// @Summary Cancel running session
			// @Tags integrations
			// @Produce json
			// @Param type path string true "Integration type"
			// @Success 202 {object} map[string]string
			// @Failure 404 {object} ErrorResponse
			// @Router /integrations/{type}/cancel [post]
			integrations.POST("/:type/cancel", h.CancelIntegration)
		}

		reconciliation := v1.Group("/reconciliation")
		{
			// @Summary Compare entities
			// @Description Fetch both systems and store the discrepancies as a set
			// @Tags reconciliation
			// @Produce json
			// @Param entityType path string true "Entity type"
			// @Success 200 {object} reconcile.DiscrepancySet
			// @Failure 502 {object} ErrorResponse
			// @Router /reconciliation/{entityType}/compare [post]
			reconciliation.POST("/:entityType/compare", h.Compare)

			// @Summary Resolve discrepancy
			// @Tags reconciliation
			// @Accept json
			// @Produce json
			// @Param id path string true "Set ID"
			// @Param entityId path string true "Entity ID"
			// @Param request body ResolveRequest true "Resolution"
			// @Success 200 {object} models.DiscrepancyRecord
			// @Failure 400 {object} ErrorResponse
			// @Failure 404 {object} ErrorResponse
			// @Router /reconciliation/sets/{id}/records/{entityId}/resolve [post]
			reconciliation.POST("/sets/:id/records/:entityId/resolve", h.ResolveRecord)

			// @Summary Commit resolutions
			// @Description Write resolved records back to P6 and EBS
			// @Tags reconciliation
			// @Produce json
			// @Param id path string true "Set ID"
			// @Success 200 {object} reconcile.CommitResult
			// @Failure 404 {object} ErrorResponse
			// @Router /reconciliation/sets/{id}/commit [post]
			reconciliation.POST("/sets/:id/commit", h.CommitSet)

			// @Summary Export set
			// @Tags reconciliation
			// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
			// @Param id path string true "Set ID"
			// @Success 200 {file} file
			// @Failure 404 {object} ErrorResponse
			// @Router /reconciliation/sets/{id}/export [get]
			reconciliation.GET("/sets/:id/export", h.ExportSet)
		}

		// @Summary Run validation
		// @Tags validation
		// @Produce json
		// @Param type path string true "Integration type"
		// @Success 200 {object} models.ValidationReport
		// @Failure 400 {object} ErrorResponse
		// @Router /validation/{type} [get]
		v1.GET("/validation/:type", h.Validate)

		// @Summary Look up correlated id
		// @Tags correlations
		// @Produce json
		// @Param entityType path string true "Entity type"
		// @Param system path string true "P6 or EBS"
		// @Param id path string true "Entity ID in that system"
		// @Success 200 {object} CorrelationResponse
		// @Failure 404 {object} ErrorResponse
		// @Router /correlations/{entityType}/{system}/{id} [get]
		v1.GET("/correlations/:entityType/:system/:id", h.LookupCorrelation)

		// @Summary List reports
		// @Tags reports
		// @Produce json
		// @Success 200 {array} report.Info
		// @Router /reports [get]
		v1.GET("/reports", h.ListReports)

		// @Summary Generate summary report
		// @Tags reports
		// @Produce json
		// @Success 201 {object} report.Info
		// @Failure 500 {object} ErrorResponse
		// @Router /reports/summary [post]
		v1.POST("/reports/summary", h.GenerateSummaryReport)

		// @Summary Recent log entries
		// @Tags system
		// @Produce json
		// @Param level query string false "Minimum level" Enums(debug,info,warning,error)
		// @Success 200 {array} logging.Entry
		// @Router /logs [get]
		v1.GET("/logs", h.RecentLogs)
	}

	return r
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("Handled request")
	}
}
