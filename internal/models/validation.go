package models

import "time"

// Issue types reported by the validation gate
const (
	IssueValidationError = "VALIDATION_ERROR"
	IssueConnection      = "CONNECTION"
	IssueMappingGap      = "MAPPING_GAP"
	IssueMissingField    = "MISSING_FIELD"
)

// ValidationIssue is one pre-flight finding. Blocking issues stop the sync.
type ValidationIssue struct {
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id,omitempty"`
	IssueType   string `json:"issue_type"`
	Description string `json:"description"`
	Blocking    bool   `json:"blocking"`
}

// ValidationReport summarises the issues found for one integration type
type ValidationReport struct {
	IntegrationType string            `json:"integration_type"`
	Timestamp       time.Time         `json:"timestamp"`
	Issues          []ValidationIssue `json:"issues"`
	TotalIssues     int               `json:"total_issues"`
	BlockingIssues  int               `json:"blocking_issues"`
	Warnings        int               `json:"warnings"`
}

// HasBlocking reports whether any issue in the report is blocking
func (r *ValidationReport) HasBlocking() bool {
	return r != nil && r.BlockingIssues > 0
}
