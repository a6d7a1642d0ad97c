package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// SyncMetrics contains all Prometheus metrics of the sync service.
// A nil *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	registry *prometheus.Registry

	// Session metrics
	SessionsTotal      *prometheus.CounterVec
	SessionDuration    *prometheus.HistogramVec
	ActiveIntegrations prometheus.Gauge

	// Reconciliation metrics
	DiscrepanciesDetected *prometheus.CounterVec
	WriteBackTotal        *prometheus.CounterVec

	// Source metrics
	FetchErrors   *prometheus.CounterVec
	CacheRequests *prometheus.CounterVec
}

// NewSyncMetrics registers the metrics on a fresh registry
func NewSyncMetrics() *SyncMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &SyncMetrics{
		registry: reg,

		SessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "p6ebs_sync_sessions_total",
			Help: "Total number of finished sync sessions",
		}, []string{"type", "status"}),

		SessionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "p6ebs_sync_duration_seconds",
			Help:    "Duration of sync sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17 minutes
		}, []string{"type"}),

		ActiveIntegrations: factory.NewGauge(prometheus.GaugeOpts{
			Name: "p6ebs_active_integrations",
			Help: "Number of integration types currently syncing",
		}),

		DiscrepanciesDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "p6ebs_discrepancies_detected_total",
			Help: "Total number of discrepancies detected",
		}, []string{"entity_type", "kind"}),

		WriteBackTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "p6ebs_writeback_total",
			Help: "Total number of write-back attempts",
		}, []string{"system", "outcome"}),

		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "p6ebs_source_fetch_errors_total",
			Help: "Total number of failed entity fetches",
		}, []string{"system"}),

		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "p6ebs_source_cache_requests_total",
			Help: "Fetch cache lookups by result",
		}, []string{"system", "result"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *SyncMetrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *SyncMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *SyncMetrics) ObserveSession(integrationType, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues(integrationType, status).Inc()
	m.SessionDuration.WithLabelValues(integrationType).Observe(d.Seconds())
}

func (m *SyncMetrics) SetActive(n int) {
	if m == nil {
		return
	}
	m.ActiveIntegrations.Set(float64(n))
}

func (m *SyncMetrics) ObserveDiscrepancies(entityType string, s models.DiscrepancySummary) {
	if m == nil {
		return
	}
	m.DiscrepanciesDetected.WithLabelValues(entityType, string(models.DiscrepancyMissingInP6)).Add(float64(s.MissingInP6))
	m.DiscrepanciesDetected.WithLabelValues(entityType, string(models.DiscrepancyMissingInEBS)).Add(float64(s.MissingInEBS))
	m.DiscrepanciesDetected.WithLabelValues(entityType, string(models.DiscrepancyValueMismatch)).Add(float64(s.ValueMismatch))
}

// ObserveWrite counts one write-back attempt
func (m *SyncMetrics) ObserveWrite(system models.System, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.WriteBackTotal.WithLabelValues(string(system), outcome).Inc()
}

func (m *SyncMetrics) IncFetchError(system models.System) {
	if m == nil {
		return
	}
	m.FetchErrors.WithLabelValues(string(system)).Inc()
}

func (m *SyncMetrics) ObserveCache(system models.System, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(string(system), result).Inc()
}
