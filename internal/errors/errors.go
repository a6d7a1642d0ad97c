package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrConnection         ErrorType = "CONNECTION"
	ErrValidationBlocking ErrorType = "VALIDATION_BLOCKING"
	ErrMappingGap         ErrorType = "MAPPING_GAP"
	ErrWriteBack          ErrorType = "WRITE_BACK"
	ErrScheduling         ErrorType = "SCHEDULING"
	ErrNotFound           ErrorType = "NOT_FOUND"
	ErrInvalidInput       ErrorType = "INVALID_INPUT"
	ErrInternal           ErrorType = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type      ErrorType
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// TypeOf returns the type of the first AppError in err's chain, or "" if there is none
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

func is(err error, t ErrorType) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Type == t {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// IsConnection checks if the error is a connection error
func IsConnection(err error) bool { return is(err, ErrConnection) }

// IsValidationBlocking checks if a blocking validation issue stopped the sync
func IsValidationBlocking(err error) bool { return is(err, ErrValidationBlocking) }

// IsMappingGap checks if the error is a missing field mapping
func IsMappingGap(err error) bool { return is(err, ErrMappingGap) }

// IsWriteBack checks if the error is a write-back failure
func IsWriteBack(err error) bool { return is(err, ErrWriteBack) }

// IsScheduling checks if the error is a scheduling error
func IsScheduling(err error) bool { return is(err, ErrScheduling) }

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool { return is(err, ErrNotFound) }

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool { return is(err, ErrInvalidInput) }

// IsSyncInProgress checks if a session for the same integration type is already running
func IsSyncInProgress(err error) bool {
	var inProgress *SyncInProgressError
	return stderrors.As(err, &inProgress)
}

// NewConnectionError creates a new connection error
func NewConnectionError(message string, err error) *AppError {
	return New(ErrConnection, message, err)
}

// NewValidationBlockingError creates a new blocking validation error
func NewValidationBlockingError(message string, err error) *AppError {
	return New(ErrValidationBlocking, message, err)
}

// NewMappingGapError creates a new mapping gap error
func NewMappingGapError(entityType string) *AppError {
	return New(ErrMappingGap, fmt.Sprintf("no field mapping registered for entity type %q", entityType), nil)
}

// NewWriteBackError creates a new write-back error
func NewWriteBackError(message string, err error) *AppError {
	return New(ErrWriteBack, message, err)
}

// NewSchedulingError creates a new scheduling error
func NewSchedulingError(message string, err error) *AppError {
	return New(ErrScheduling, message, err)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return New(ErrNotFound, message, err)
}

// NewValidationError creates a new invalid input error
func NewValidationError(message string, err error) *AppError {
	return New(ErrInvalidInput, message, err)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return New(ErrInternal, message, err)
}

// SyncInProgressError is returned when a session is started for an integration type that already has one running
type SyncInProgressError struct {
	IntegrationType string
}

func (e *SyncInProgressError) Error() string {
	return fmt.Sprintf("sync already in progress for integration type: %s", e.IntegrationType)
}

// NewSyncInProgressError creates a new SyncInProgressError
func NewSyncInProgressError(integrationType string) error {
	return &SyncInProgressError{
		IntegrationType: integrationType,
	}
}
