package correlation

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// MockPersister is a mock implementation of Persister
type MockPersister struct {
	mock.Mock
}

func (m *MockPersister) LoadCorrelations(ctx context.Context) (Correlations, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Correlations), args.Error(1)
}

func (m *MockPersister) SaveCorrelations(ctx context.Context, c Correlations) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestCorrelateOverwritesAndFixesReverse(t *testing.T) {
	s := NewStore(nil, testLogger())

	s.Correlate("project", "P1", "E1")
	s.Correlate("project", "P1", "E2")

	id, ok := s.LookupEBS("project", "P1")
	require.True(t, ok)
	assert.Equal(t, "E2", id)

	_, ok = s.LookupP6("project", "E1")
	assert.False(t, ok)

	id, ok = s.LookupP6("project", "E2")
	require.True(t, ok)
	assert.Equal(t, "P1", id)

	_, ok = s.LookupEBS("resource", "P1")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Count("project"))
}

func TestReverseFallsBackToRemainingPair(t *testing.T) {
	s := NewStore(nil, testLogger())
	s.Correlate("project", "P1", "E1")
	s.Correlate("project", "P2", "E1")
	s.Correlate("project", "P2", "E9")

	id, ok := s.Lookup("project", models.SystemEBS, "E1")
	require.True(t, ok)
	assert.Equal(t, "P1", id)
}

func TestMatchByBusinessKey(t *testing.T) {
	persister := new(MockPersister)
	persister.On("SaveCorrelations", mock.Anything, mock.Anything).Return(nil).Once()
	s := NewStore(persister, testLogger())

	p6 := []models.EntityRecord{
		models.NewEntityRecord("101", "Alpha", map[string]interface{}{"proj_short_name": "ALP"}),
		models.NewEntityRecord("102", "Beta", map[string]interface{}{"proj_short_name": "BET"}),
		models.NewEntityRecord("103", "NoKey", map[string]interface{}{}),
	}
	ebs := []models.EntityRecord{
		models.NewEntityRecord("9001", "Alpha", map[string]interface{}{"segment1": "ALP"}),
		models.NewEntityRecord("9002", "Gamma", map[string]interface{}{"segment1": "GAM"}),
	}

	matches, err := s.MatchByBusinessKey(context.Background(), "project", p6, ebs, "proj_short_name", "segment1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"101": "9001"}, matches)

	id, ok := s.LookupP6("project", "9001")
	require.True(t, ok)
	assert.Equal(t, "101", id)
	persister.AssertExpectations(t)
}

func TestMatchByBusinessKeyPropagatesSaveError(t *testing.T) {
	persister := new(MockPersister)
	persister.On("SaveCorrelations", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	s := NewStore(persister, testLogger())

	p6 := []models.EntityRecord{models.NewEntityRecord("1", "a", map[string]interface{}{"k": "x"})}
	ebs := []models.EntityRecord{models.NewEntityRecord("2", "a", map[string]interface{}{"k": "x"})}

	_, err := s.MatchByBusinessKey(context.Background(), "wbs", p6, ebs, "k", "k")
	assert.Error(t, err)
	_, ok := s.LookupEBS("wbs", "1")
	assert.True(t, ok)
}

func TestFilePersisterRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "corr", "id_correlations.json")

	s := NewStore(NewFilePersister(path), testLogger())
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, 0, s.Count("project"))

	s.Correlate("project", "P1", "E1")
	s.Correlate("resource", "R1", "PER1")
	require.NoError(t, s.Save(ctx))

	reloaded := NewStore(NewFilePersister(path), testLogger())
	require.NoError(t, reloaded.Load(ctx))
	id, ok := reloaded.LookupP6("resource", "PER1")
	require.True(t, ok)
	assert.Equal(t, "R1", id)

	reloaded.Clear("resource")
	assert.Equal(t, 0, reloaded.Count("resource"))
	assert.Equal(t, 1, reloaded.Count("project"))
}
