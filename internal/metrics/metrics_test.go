package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

func TestSyncMetricsRecord(t *testing.T) {
	m := NewSyncMetrics()

	m.ObserveSession("timesheet", "completed", 2*time.Second)
	m.ObserveWrite(models.SystemEBS, nil)
	m.ObserveWrite(models.SystemEBS, errors.New("boom"))
	m.ObserveDiscrepancies("project", models.DiscrepancySummary{MissingInP6: 1, ValueMismatch: 3})
	m.IncFetchError(models.SystemP6)
	m.SetActive(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues("timesheet", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WriteBackTotal.WithLabelValues("EBS", "failure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DiscrepanciesDetected.WithLabelValues("project", "ValueMismatch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveIntegrations))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "p6ebs_sync_sessions_total")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *SyncMetrics
	assert.NotPanics(t, func() {
		m.ObserveSession("x", "failed", time.Second)
		m.ObserveWrite(models.SystemP6, nil)
		m.SetActive(1)
		m.ObserveCache(models.SystemP6, true)
	})
	assert.Nil(t, m.Registry())
}
