package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/tpcgrp/p6ebs-sync/internal/config"
	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// GatewayError is a non-success response from a REST gateway
type GatewayError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("gateway error (status %d): %s", e.StatusCode, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// retryable reports whether the request may be sent again
func (e *GatewayError) retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// RESTSource talks to a JSON gateway in front of P6 or EBS:
//
//	GET   {base}/health
//	GET   {base}/entities/{type}
//	POST  {base}/entities/{type}
//	PATCH {base}/entities/{type}/{id}
type RESTSource struct {
	system  models.System
	baseURL string
	client  *http.Client
	retry   config.RetryConfig
	logger  *logrus.Logger
}

// NewRESTSource creates a gateway client. When a token URL and client id are
// configured, requests carry an oauth2 client-credentials token.
func NewRESTSource(system models.System, params config.ConnectionParams, retry config.RetryConfig, logger *logrus.Logger) *RESTSource {
	var client *http.Client
	if params.TokenURL != "" && params.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     params.ClientID,
			ClientSecret: params.ClientSecret,
			TokenURL:     params.TokenURL,
		}
		client = cc.Client(context.Background())
	} else {
		client = &http.Client{}
	}
	client.Timeout = 120 * time.Second

	return NewRESTSourceWithClient(system, params.BaseURL, client, retry, logger)
}

// NewRESTSourceWithClient creates a gateway client using client as is
func NewRESTSourceWithClient(system models.System, baseURL string, client *http.Client, retry config.RetryConfig, logger *logrus.Logger) *RESTSource {
	return &RESTSource{
		system:  system,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		retry:   retry,
		logger:  logger,
	}
}

func (s *RESTSource) System() models.System { return s.system }

func (s *RESTSource) entityURL(entityType string, id ...string) string {
	u := s.baseURL + "/entities/" + url.PathEscape(entityType)
	for _, part := range id {
		u += "/" + url.PathEscape(part)
	}
	return u
}

func (s *RESTSource) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if err := s.do(req, nil); err != nil {
		return apperrors.NewConnectionError(fmt.Sprintf("ping %s", s.system), err)
	}
	return nil
}

// FetchEntities is not retried; the next scheduled run is the retry
func (s *RESTSource) FetchEntities(ctx context.Context, entityType string) ([]models.EntityRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.entityURL(entityType), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	var out []models.EntityRecord
	if err := s.do(req, &out); err != nil {
		return nil, apperrors.NewConnectionError(fmt.Sprintf("fetch %s from %s", entityType, s.system), err)
	}
	for i := range out {
		if out[i].Fields == nil {
			out[i].Fields = map[string]models.Value{}
		}
	}
	return out, nil
}

func (s *RESTSource) WriteEntity(ctx context.Context, entityType, id string, updates map[string]models.Value) error {
	body, err := json.Marshal(updates)
	if err != nil {
		return fmt.Errorf("failed to encode updates: %w", err)
	}
	err = s.doWithBackoff(ctx, http.MethodPatch, s.entityURL(entityType, id), body, nil)
	var gerr *GatewayError
	if errors.As(err, &gerr) && gerr.StatusCode == http.StatusNotFound {
		return apperrors.NewNotFoundError(fmt.Sprintf("%s %s %s", s.system, entityType, id), err)
	}
	return err
}

// CreateEntity posts a new entity and returns the id assigned by the gateway.
// Unlike writes it is never retried.
func (s *RESTSource) CreateEntity(ctx context.Context, entityType string, fields map[string]models.Value) (string, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.entityURL(entityType), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	// A create is sent once: the gateway may have created the entity before failing.
	var created struct {
		ID string `json:"id"`
	}
	if err := s.do(req, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", &GatewayError{StatusCode: http.StatusOK, Message: "response carries no id"}
	}
	return created.ID, nil
}

// doWithBackoff sends an idempotent write, retrying transport errors and 5xx responses
// with exponential backoff
func (s *RESTSource) doWithBackoff(ctx context.Context, method, target string, body []byte, result interface{}) error {
	var lastErr error
	backoff := s.retry.InitialBackoff
	multiplier := s.retry.RetryMultiplier
	if multiplier < 1 {
		multiplier = 2
	}

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			s.logger.WithFields(logrus.Fields{
				"system":  s.system,
				"url":     target,
				"attempt": attempt + 1,
				"backoff": backoff,
			}).WithError(lastErr).Warn("Retrying gateway write")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(math.Min(float64(backoff)*multiplier, float64(s.retry.MaxBackoff)))
		}

		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		err = s.do(req, result)
		if err == nil {
			return nil
		}
		lastErr = err
		var gerr *GatewayError
		if !errors.As(err, &gerr) || !gerr.retryable() {
			return err
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (s *RESTSource) do(req *http.Request, result interface{}) error {
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return &GatewayError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &GatewayError{StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &GatewayError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return &GatewayError{StatusCode: resp.StatusCode, Message: "failed to decode response", Err: err}
		}
	}
	return nil
}
