package logging

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingHookKeepsMostRecent(t *testing.T) {
	logger := New("debug", io.Discard)
	hook := NewRingHook(3)
	logger.AddHook(hook)

	for _, msg := range []string{"one", "two", "three", "four"} {
		logger.Info(msg)
	}

	entries := hook.Recent("")
	require.Len(t, entries, 3)
	assert.Equal(t, "two", entries[0].Message)
	assert.Equal(t, "four", entries[2].Message)
}

func TestRingHookFiltersByLevel(t *testing.T) {
	logger := New("debug", io.Discard)
	hook := NewRingHook(10)
	logger.AddHook(hook)

	logger.Debug("noise")
	logger.WithField("integration_type", "timesheet").Warn("slow fetch")
	logger.WithError(errors.New("refused")).Error("fetch failed")

	warnings := hook.Recent("warning")
	require.Len(t, warnings, 2)
	assert.Equal(t, "timesheet", warnings[0].Fields["integration_type"])
	assert.Equal(t, "refused", warnings[1].Error)

	hook.Clear()
	assert.Empty(t, hook.Recent(""))
}

func TestNewFallsBackToInfo(t *testing.T) {
	logger := New("loud", io.Discard)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}
