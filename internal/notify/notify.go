package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// Kind classifies a notification
type Kind string

const (
	KindSuccess          Kind = "Success"
	KindFailure          Kind = "Failure"
	KindValidationReport Kind = "ValidationReport"
)

// Notification is one message about an integration run
type Notification struct {
	Kind            Kind        `json:"kind"`
	IntegrationType string      `json:"integration_type"`
	Subject         string      `json:"subject"`
	Body            string      `json:"body"`
	Payload         interface{} `json:"payload,omitempty"`
	Timestamp       time.Time   `json:"timestamp"`
}

// Notifier delivers notifications
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Success builds the notification for a finished run, annotated with counts
func Success(result *models.SyncResult) Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Integration completed for: %s\n\n", result.IntegrationType)
	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "Total entities: %d\n", result.TotalEntities)
	fmt.Fprintf(&b, "Updated entities: %d\n", result.UpdatedEntities)
	fmt.Fprintf(&b, "Failed entities: %d\n", result.FailedEntities)
	fmt.Fprintf(&b, "Skipped records: %d\n", result.SkippedRecords)
	fmt.Fprintf(&b, "Discrepancies: %d missing in P6, %d missing in EBS, %d value mismatches\n",
		result.Discrepancies.MissingInP6, result.Discrepancies.MissingInEBS, result.Discrepancies.ValueMismatch)

	subject := "Integration Success: " + result.IntegrationType
	if result.FailedEntities > 0 {
		subject = "Integration Partial Success: " + result.IntegrationType
	}
	return Notification{
		Kind:            KindSuccess,
		IntegrationType: result.IntegrationType,
		Subject:         subject,
		Body:            b.String(),
		Payload:         result,
		Timestamp:       time.Now(),
	}
}

// Failure builds the notification for a failed run
func Failure(integrationType, message string) Notification {
	return Notification{
		Kind:            KindFailure,
		IntegrationType: integrationType,
		Subject:         "Integration Failure: " + integrationType,
		Body:            fmt.Sprintf("Integration failed for: %s\n\nError: %s\n", integrationType, message),
		Timestamp:       time.Now(),
	}
}

// ValidationReport builds the notification for a run skipped by validation
func ValidationReport(report *models.ValidationReport) Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Validation found %d issue(s) for: %s (%d blocking, %d warnings)\n\n",
		report.TotalIssues, report.IntegrationType, report.BlockingIssues, report.Warnings)
	for _, issue := range report.Issues {
		marker := "WARN"
		if issue.Blocking {
			marker = "BLOCK"
		}
		fmt.Fprintf(&b, "[%s] %s %s: %s\n", marker, issue.EntityType, issue.IssueType, issue.Description)
	}
	return Notification{
		Kind:            KindValidationReport,
		IntegrationType: report.IntegrationType,
		Subject:         "Integration Validation Report: " + report.IntegrationType,
		Body:            b.String(),
		Payload:         report,
		Timestamp:       time.Now(),
	}
}

// Async delivers n on its own goroutine. Delivery errors are logged only.
func Async(notifier Notifier, n Notification, timeout time.Duration, logger *logrus.Logger) {
	if notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := notifier.Notify(ctx, n); err != nil {
			logger.WithFields(logrus.Fields{
				"integration_type": n.IntegrationType,
				"kind":             n.Kind,
			}).WithError(err).Warn("Failed to deliver notification")
		}
	}()
}

// LogNotifier writes notifications to the log
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	entry := l.logger.WithFields(logrus.Fields{
		"integration_type": n.IntegrationType,
		"kind":             n.Kind,
		"subject":          n.Subject,
	})
	if n.Kind == KindFailure {
		entry.Error(n.Body)
	} else {
		entry.Info(n.Body)
	}
	return nil
}

// WebhookNotifier posts notifications as JSON
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{url: url, client: client}
}

func (w *WebhookNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Multi fans a notification out to every notifier, returning the first error
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var first error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}
