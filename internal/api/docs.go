package api

import (
	"time"

	_ "github.com/tpcgrp/p6ebs-sync/docs"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// ErrorResponse represents an API error
// @Description Error response from the API
type ErrorResponse struct {
	Error string `json:"error" example:"Failed to process request"`
}

// HealthResponse is returned by the health check
type HealthResponse struct {
	Status             string    `json:"status" example:"ok"`
	Time               time.Time `json:"time"`
	ActiveIntegrations []string  `json:"active_integrations"`
}

// ScheduleRequest changes the interval of one integration type
type ScheduleRequest struct {
	IntervalHours int `json:"intervalHours" binding:"required,min=1" example:"4"`
}

// RunResponse describes a submitted integration run
// @Description A background integration run; progress is set once write-back starts, result once finished
type RunResponse struct {
	ID              string                `json:"id" example:"6f1c1f5e-0b7a-4a53-9d4e-0c2b8f0e7a11"`
	IntegrationType string                `json:"integration_type" example:"timesheet"`
	StartedAt       time.Time             `json:"started_at"`
	Finished        bool                  `json:"finished"`
	Progress        *models.BatchProgress `json:"progress,omitempty"`
	Result          *models.SyncResult    `json:"result,omitempty"`
}

// ResolveRequest applies a resolution to fields of one discrepancy record
type ResolveRequest struct {
	Fields          []string               `json:"fields"`
	Action          models.Resolution      `json:"action" binding:"required" enums:"UseA,UseB,Ignore,Custom" example:"UseA"`
	CustomValue     *models.Value          `json:"customValue,omitempty" swaggertype:"string"`
	DiscrepancyType models.DiscrepancyType `json:"discrepancyType,omitempty" enums:"MissingInP6,MissingInEbs,ValueMismatch"`
}

// CorrelationResponse is one side of a correlated id pair
type CorrelationResponse struct {
	EntityType        string        `json:"entity_type" example:"project"`
	System            models.System `json:"system" example:"P6"`
	ID                string        `json:"id" example:"P6_PROJ_1"`
	CounterpartSystem models.System `json:"counterpart_system" example:"EBS"`
	CounterpartID     string        `json:"counterpart_id" example:"1001"`
}
