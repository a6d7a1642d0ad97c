package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicatesFollowWrapping(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	err := fmt.Errorf("fetch projects: %w", NewConnectionError("P6 unreachable", cause))

	assert.True(t, IsConnection(err))
	assert.False(t, IsWriteBack(err))
	assert.Equal(t, ErrConnection, TypeOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "CONNECTION: P6 unreachable")
}

func TestNestedAppErrors(t *testing.T) {
	inner := NewConnectionError("EBS unreachable", nil)
	outer := NewWriteBackError("write task 12", inner)

	assert.True(t, IsWriteBack(outer))
	assert.True(t, IsConnection(outer))
	assert.Equal(t, ErrWriteBack, TypeOf(outer))
}

func TestSyncInProgress(t *testing.T) {
	err := fmt.Errorf("start: %w", NewSyncInProgressError("timesheet"))
	assert.True(t, IsSyncInProgress(err))
	assert.False(t, IsSyncInProgress(NewInternalError("boom", nil)))
	assert.Equal(t, ErrorType(""), TypeOf(stderrors.New("plain")))
}
