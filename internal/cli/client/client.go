package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tpcgrp/p6ebs-sync/internal/api"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
	"github.com/tpcgrp/p6ebs-sync/internal/reconcile"
	"github.com/tpcgrp/p6ebs-sync/internal/report"
)

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// APIClient talks to the operator API
type APIClient struct {
	server string
	http   *http.Client
}

// NewAPIClient creates a client for server, adding http:// when no scheme is given
func NewAPIClient(server string, httpClient *http.Client) (*APIClient, error) {
	normalized, err := normalizeServerURL(server)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &APIClient{server: normalized, http: httpClient}, nil
}

func normalizeServerURL(server string) (string, error) {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", server)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func (c *APIClient) Health(ctx context.Context) (*api.HealthResponse, error) {
	var out api.HealthResponse
	return &out, c.do(ctx, http.MethodGet, "/health", nil, &out)
}

func (c *APIClient) Run(ctx context.Context, integrationType string) (*api.RunResponse, error) {
	var out api.RunResponse
	return &out, c.do(ctx, http.MethodPost, "/integrations/"+url.PathEscape(integrationType)+"/run", nil, &out)
}

func (c *APIClient) GetRun(ctx context.Context, id string) (*api.RunResponse, error) {
	var out api.RunResponse
	return &out, c.do(ctx, http.MethodGet, "/integrations/runs/"+url.PathEscape(id), nil, &out)
}

// WaitRun polls a run until it finishes or ctx ends
func (c *APIClient) WaitRun(ctx context.Context, id string, every time.Duration) (*api.RunResponse, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		run, err := c.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		if run.Finished {
			return run, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *APIClient) Cancel(ctx context.Context, integrationType string) error {
	return c.do(ctx, http.MethodPost, "/integrations/"+url.PathEscape(integrationType)+"/cancel", nil, nil)
}

func (c *APIClient) Schedules(ctx context.Context) ([]models.ScheduleInfo, error) {
	var out []models.ScheduleInfo
	return out, c.do(ctx, http.MethodGet, "/integrations/schedules", nil, &out)
}

func (c *APIClient) SetSchedule(ctx context.Context, integrationType string, hours int) (*models.ScheduleInfo, error) {
	var out models.ScheduleInfo
	body := api.ScheduleRequest{IntervalHours: hours}
	return &out, c.do(ctx, http.MethodPut, "/integrations/"+url.PathEscape(integrationType)+"/schedule", body, &out)
}

func (c *APIClient) DeleteSchedule(ctx context.Context, integrationType string) error {
	return c.do(ctx, http.MethodDelete, "/integrations/"+url.PathEscape(integrationType)+"/schedule", nil, nil)
}

func (c *APIClient) History(ctx context.Context, integrationType string) ([]models.SyncRecord, error) {
	path := "/integrations/history"
	if integrationType != "" {
		path += "?type=" + url.QueryEscape(integrationType)
	}
	var out []models.SyncRecord
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

func (c *APIClient) Compare(ctx context.Context, entityType string) (*reconcile.DiscrepancySet, error) {
	var out reconcile.DiscrepancySet
	return &out, c.do(ctx, http.MethodPost, "/reconciliation/"+url.PathEscape(entityType)+"/compare", nil, &out)
}

// Export writes the workbook of a discrepancy set to w
func (c *APIClient) Export(ctx context.Context, setID string, w io.Writer) error {
	resp, err := c.send(ctx, http.MethodGet, "/reconciliation/sets/"+url.PathEscape(setID)+"/export", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *APIClient) Validate(ctx context.Context, integrationType string) (*models.ValidationReport, error) {
	var out models.ValidationReport
	return &out, c.do(ctx, http.MethodGet, "/validation/"+url.PathEscape(integrationType), nil, &out)
}

func (c *APIClient) GenerateSummary(ctx context.Context) (*report.Info, error) {
	var out report.Info
	return &out, c.do(ctx, http.MethodPost, "/reports/summary", nil, &out)
}

func (c *APIClient) Reports(ctx context.Context) ([]report.Info, error) {
	var out []report.Info
	return out, c.do(ctx, http.MethodGet, "/reports", nil, &out)
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *APIClient) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.server+"/api/v1"+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		var apiErr api.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(raw))
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}
	return resp, nil
}
