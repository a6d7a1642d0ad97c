package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

func TestFileStoreCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "integration_config.json")
	store := NewFileStore(path)

	cfg, err := store.Load()
	require.NoError(t, err)
	assert.FileExists(t, path)

	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 3, cfg.RetryCount)
	assert.Equal(t, 5000, cfg.RetryDelayMs)
	assert.Equal(t, models.DirectionP6ToEBS, cfg.DirectionFor(ProjectFinancials))
	assert.Equal(t, models.DirectionBidirectional, cfg.DirectionFor(ResourceManagement))
	assert.Equal(t, models.DirectionEBSToP6, cfg.DirectionFor(Procurement))
	assert.Equal(t, 4*time.Hour, cfg.IntervalFor(Timesheet))
	assert.Equal(t, 12*time.Hour, cfg.IntervalFor(ResourceManagement))
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "integration_config.json")
	store := NewFileStore(path)

	cfg := DefaultIntegrationConfig()
	cfg.SyncIntervals[Timesheet] = 2
	cfg.Enabled[Procurement] = false
	cfg.FieldMappings = map[string]map[string]string{"project": {"proj_name": "project_name"}}
	require.NoError(t, store.Save(cfg))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, loaded.IntervalFor(Timesheet))
	assert.False(t, loaded.IsEnabled(Procurement))
	assert.True(t, loaded.IsEnabled("someNewType"))
	assert.Equal(t, "project_name", loaded.FieldMappings["project"]["proj_name"])
	assert.Contains(t, loaded.IntegrationTypes(), ProjectFinancials)
}

func TestSecretsComeFromEnvironmentOnly(t *testing.T) {
	t.Setenv(EnvP6Password, "p6-db-pass")
	t.Setenv(EnvEBSClientSecret, "ebs-oauth-secret")

	path := filepath.Join(t.TempDir(), "integration_config.json")
	store := NewFileStore(path)

	cfg := DefaultIntegrationConfig()
	cfg.P6 = ConnectionParams{Driver: DriverPostgres, Host: "p6db", Database: "pmdb", Username: "admuser", Password: "typed-in"}
	cfg.EBS = ConnectionParams{Driver: DriverREST, BaseURL: "https://ebs.example.com", ClientID: "sync", ClientSecret: "typed-in"}
	require.NoError(t, store.Save(cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "typed-in")
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), "client_secret")

	// secrets placed in the file by hand are ignored
	require.NoError(t, os.WriteFile(path, []byte(`{
		"p6": {"driver": "postgres", "host": "p6db", "database": "pmdb", "password": "from-file"},
		"ebs": {"driver": "rest", "base_url": "https://ebs.example.com", "client_secret": "from-file"}
	}`), 0o600))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "p6-db-pass", loaded.P6.Password)
	assert.Empty(t, loaded.P6.ClientSecret)
	assert.Empty(t, loaded.EBS.Password)
	assert.Equal(t, "ebs-oauth-secret", loaded.EBS.ClientSecret)
	assert.Equal(t, "ebs-oauth-secret", loaded.Clone().EBS.ClientSecret)
}

func TestUnknownTypeDefaults(t *testing.T) {
	cfg := DefaultIntegrationConfig()
	assert.Equal(t, models.DirectionBidirectional, cfg.DirectionFor("payroll"))
	assert.Equal(t, 24*time.Hour, cfg.IntervalFor("payroll"))
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *IntegrationConfig)
	}{
		{"bad direction", func(cfg *IntegrationConfig) { cfg.SyncDirections[Timesheet] = "SIDEWAYS" }},
		{"zero interval", func(cfg *IntegrationConfig) { cfg.SyncIntervals[Timesheet] = 0 }},
		{"zero batch size", func(cfg *IntegrationConfig) { cfg.BatchSize = 0 }},
		{"sql source without host", func(cfg *IntegrationConfig) { cfg.P6 = ConnectionParams{Driver: "postgres", Database: "pmdb"} }},
		{"rest source without base url", func(cfg *IntegrationConfig) { cfg.EBS = ConnectionParams{Driver: "rest"} }},
		{"unknown driver", func(cfg *IntegrationConfig) { cfg.EBS = ConnectionParams{Driver: "oracle-thin"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultIntegrationConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "integration_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"p6":{"driver":"simulator"},"ebs":{"driver":"simulator"},"syncDirections":{"timesheet":"NOPE"}}`), 0o600))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestProviderUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "integration_config.json")
	p, err := NewProvider(NewFileStore(path))
	require.NoError(t, err)

	require.NoError(t, p.Update(func(cfg *IntegrationConfig) {
		cfg.SyncIntervals[Timesheet] = 8
	}))
	assert.Equal(t, 8*time.Hour, p.Get().IntervalFor(Timesheet))

	err = p.Update(func(cfg *IntegrationConfig) { cfg.SyncIntervals[Timesheet] = -1 })
	assert.Error(t, err)
	assert.Equal(t, 8*time.Hour, p.Get().IntervalFor(Timesheet))

	reloaded, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, reloaded.IntervalFor(Timesheet))
}

func TestCanonicalType(t *testing.T) {
	assert.Equal(t, ProjectFinancials, CanonicalType("projectfinancials"))
	assert.Equal(t, "custom", CanonicalType("custom"))
}
