package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tpcgrp/p6ebs-sync/internal/logging"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func TestSuccessAnnotatesCounts(t *testing.T) {
	n := Success(&models.SyncResult{
		IntegrationType: "timesheet",
		TotalEntities:   40,
		UpdatedEntities: 7,
		FailedEntities:  1,
		Discrepancies:   models.DiscrepancySummary{ValueMismatch: 8},
	})

	assert.Equal(t, KindSuccess, n.Kind)
	assert.Equal(t, "Integration Partial Success: timesheet", n.Subject)
	assert.Contains(t, n.Body, "Updated entities: 7")
	assert.Contains(t, n.Body, "8 value mismatches")
}

func TestValidationReportListsIssues(t *testing.T) {
	n := ValidationReport(&models.ValidationReport{
		IntegrationType: "procurement",
		TotalIssues:     1,
		BlockingIssues:  1,
		Issues: []models.ValidationIssue{
			{EntityType: "procurement", IssueType: models.IssueConnection, Description: "EBS is unreachable", Blocking: true},
		},
	})

	assert.Equal(t, KindValidationReport, n.Kind)
	assert.Contains(t, n.Body, "[BLOCK] procurement CONNECTION: EBS is unreachable")
}

func TestWebhookNotifier(t *testing.T) {
	received := make(chan Notification, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n Notification
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&n))
		received <- n
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := NewWebhookNotifier(server.URL, server.Client()).Notify(context.Background(), Failure("timesheet", "EBS is unreachable"))
	require.NoError(t, err)

	n := <-received
	assert.Equal(t, KindFailure, n.Kind)
	assert.Equal(t, "timesheet", n.IntegrationType)
}

func TestWebhookNotifierStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := NewWebhookNotifier(server.URL, server.Client()).Notify(context.Background(), Failure("x", "y"))
	assert.EqualError(t, err, "webhook returned status 500")
}

func TestMultiReturnsFirstErrorAndNotifiesAll(t *testing.T) {
	first := new(MockNotifier)
	second := new(MockNotifier)
	n := Failure("timesheet", "boom")
	first.On("Notify", mock.Anything, n).Return(errors.New("smtp down"))
	second.On("Notify", mock.Anything, n).Return(nil)

	err := Multi{first, second}.Notify(context.Background(), n)

	assert.EqualError(t, err, "smtp down")
	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestAsyncLogsDeliveryFailure(t *testing.T) {
	ring := logging.NewRingHook(10)
	logger := logging.New("info", io.Discard)
	logger.AddHook(ring)

	done := make(chan struct{})
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("unreachable")).Run(func(args mock.Arguments) {
		close(done)
	})

	Async(notifier, Failure("timesheet", "boom"), time.Second, logger)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
	assert.Eventually(t, func() bool {
		recent := ring.Recent("warning")
		return len(recent) == 1 && recent[0].Message == "Failed to deliver notification"
	}, time.Second, 10*time.Millisecond)
}
