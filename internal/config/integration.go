package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// Integration types known to the service
const (
	ProjectFinancials  = "projectFinancials"
	ResourceManagement = "resourceManagement"
	Procurement        = "procurement"
	Timesheet          = "timesheet"
	ProjectWBS         = "projectWbs"
	EBSTasksToP6       = "ebsTasksToP6"
)

// KnownIntegrationTypes lists every integration type in display order
var KnownIntegrationTypes = []string{
	ProjectFinancials, ResourceManagement, Procurement, Timesheet, ProjectWBS, EBSTasksToP6,
}

const (
	defaultInterval  = 24
	defaultBatchSize = 100
)

// CanonicalType returns the canonical spelling of an integration type name.
// Config keys come back lower-cased from viper, so lookups go through here.
func CanonicalType(name string) string {
	for _, t := range KnownIntegrationTypes {
		if strings.EqualFold(t, name) {
			return t
		}
	}
	return name
}

// Connector drivers
const (
	DriverPostgres  = "postgres"
	DriverMySQL     = "mysql"
	DriverREST      = "rest"
	DriverSimulator = "simulator"
)

// ConnectionParams describes how to reach one of the two systems
type ConnectionParams struct {
	Driver       string `json:"driver" mapstructure:"driver" validate:"required,oneof=postgres mysql rest simulator"`
	Host         string `json:"host,omitempty" mapstructure:"host"`
	Port         int    `json:"port,omitempty" mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Database     string `json:"database,omitempty" mapstructure:"database"`
	Username     string `json:"username,omitempty" mapstructure:"username"`
	Password     string `json:"-" mapstructure:"-"`
	SSLMode      string `json:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
	BaseURL      string `json:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	TokenURL     string `json:"token_url,omitempty" mapstructure:"token_url" validate:"omitempty,url"`
	ClientID     string `json:"client_id,omitempty" mapstructure:"client_id"`
	ClientSecret string `json:"-" mapstructure:"-"`
}

// Connection secrets are read from these environment variables only. They
// are never loaded from or written to the config file.
const (
	EnvP6Password      = "P6EBS_P6_PASSWORD"
	EnvP6ClientSecret  = "P6EBS_P6_CLIENT_SECRET"
	EnvEBSPassword     = "P6EBS_EBS_PASSWORD"
	EnvEBSClientSecret = "P6EBS_EBS_CLIENT_SECRET"
)

func (c *IntegrationConfig) loadSecrets() {
	v := viper.New()
	v.BindEnv("p6.password", EnvP6Password)
	v.BindEnv("p6.client_secret", EnvP6ClientSecret)
	v.BindEnv("ebs.password", EnvEBSPassword)
	v.BindEnv("ebs.client_secret", EnvEBSClientSecret)

	c.P6.Password = v.GetString("p6.password")
	c.P6.ClientSecret = v.GetString("p6.client_secret")
	c.EBS.Password = v.GetString("ebs.password")
	c.EBS.ClientSecret = v.GetString("ebs.client_secret")
}

// IntegrationConfig is the persisted integration configuration
type IntegrationConfig struct {
	P6             ConnectionParams             `json:"p6" mapstructure:"p6"`
	EBS            ConnectionParams             `json:"ebs" mapstructure:"ebs"`
	BatchSize      int                          `json:"batchSize" mapstructure:"batchsize" validate:"min=1"`
	RetryCount     int                          `json:"retryCount" mapstructure:"retrycount" validate:"min=0"`
	RetryDelayMs   int                          `json:"retryDelayMs" mapstructure:"retrydelayms" validate:"min=0"`
	LogLevel       string                       `json:"logLevel" mapstructure:"loglevel" validate:"omitempty,oneof=debug info warning warn error"`
	MergePriority  models.System                `json:"mergePriority,omitempty" mapstructure:"mergepriority" validate:"omitempty,oneof=P6 EBS"`
	SyncDirections map[string]models.Direction  `json:"syncDirections" mapstructure:"syncdirections" validate:"dive,oneof=P6_TO_EBS EBS_TO_P6 BIDIRECTIONAL"`
	SyncIntervals  map[string]int               `json:"syncIntervals" mapstructure:"syncintervals" validate:"dive,min=1"`
	Enabled        map[string]bool              `json:"enabled" mapstructure:"enabled"`
	FieldMappings  map[string]map[string]string `json:"fieldMappings,omitempty" mapstructure:"fieldmappings"`
}

// DefaultIntegrationConfig returns the configuration written on first start
func DefaultIntegrationConfig() *IntegrationConfig {
	return &IntegrationConfig{
		P6:            ConnectionParams{Driver: DriverSimulator},
		EBS:           ConnectionParams{Driver: DriverSimulator},
		BatchSize:     defaultBatchSize,
		RetryCount:    3,
		RetryDelayMs:  5000,
		LogLevel:      "info",
		MergePriority: models.SystemEBS,
		SyncDirections: map[string]models.Direction{
			ProjectFinancials:  models.DirectionP6ToEBS,
			ResourceManagement: models.DirectionBidirectional,
			Procurement:        models.DirectionEBSToP6,
			Timesheet:          models.DirectionP6ToEBS,
			ProjectWBS:         models.DirectionP6ToEBS,
			EBSTasksToP6:       models.DirectionEBSToP6,
		},
		SyncIntervals: map[string]int{
			ProjectFinancials:  24,
			ResourceManagement: 12,
			Procurement:        6,
			Timesheet:          4,
			ProjectWBS:         24,
			EBSTasksToP6:       24,
		},
		Enabled: map[string]bool{
			ProjectFinancials:  true,
			ResourceManagement: true,
			Procurement:        true,
			Timesheet:          true,
			ProjectWBS:         true,
			EBSTasksToP6:       false,
		},
	}
}

// DirectionFor returns the configured direction for an integration type, BIDIRECTIONAL if unset
func (c *IntegrationConfig) DirectionFor(integrationType string) models.Direction {
	if d, ok := c.SyncDirections[CanonicalType(integrationType)]; ok && d.Valid() {
		return d
	}
	return models.DirectionBidirectional
}

// IntervalFor returns the configured interval for an integration type, 24h if unset
func (c *IntegrationConfig) IntervalFor(integrationType string) time.Duration {
	if h, ok := c.SyncIntervals[CanonicalType(integrationType)]; ok && h > 0 {
		return time.Duration(h) * time.Hour
	}
	return defaultInterval * time.Hour
}

// IsEnabled reports whether an integration type is enabled; types without a flag are enabled
func (c *IntegrationConfig) IsEnabled(integrationType string) bool {
	enabled, ok := c.Enabled[CanonicalType(integrationType)]
	return !ok || enabled
}

// IntegrationTypes returns every type with a configured interval or direction, sorted
func (c *IntegrationConfig) IntegrationTypes() []string {
	seen := make(map[string]struct{})
	for t := range c.SyncIntervals {
		seen[t] = struct{}{}
	}
	for t := range c.SyncDirections {
		seen[t] = struct{}{}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Clone returns a deep copy
func (c *IntegrationConfig) Clone() *IntegrationConfig {
	out := *c
	out.SyncDirections = make(map[string]models.Direction, len(c.SyncDirections))
	for k, v := range c.SyncDirections {
		out.SyncDirections[k] = v
	}
	out.SyncIntervals = make(map[string]int, len(c.SyncIntervals))
	for k, v := range c.SyncIntervals {
		out.SyncIntervals[k] = v
	}
	out.Enabled = make(map[string]bool, len(c.Enabled))
	for k, v := range c.Enabled {
		out.Enabled[k] = v
	}
	out.FieldMappings = make(map[string]map[string]string, len(c.FieldMappings))
	for k, m := range c.FieldMappings {
		inner := make(map[string]string, len(m))
		for f, t := range m {
			inner[f] = t
		}
		out.FieldMappings[k] = inner
	}
	return &out
}

func (c *IntegrationConfig) normalize() {
	dirs := make(map[string]models.Direction, len(c.SyncDirections))
	for k, v := range c.SyncDirections {
		dirs[CanonicalType(k)] = models.Direction(strings.ToUpper(string(v)))
	}
	c.SyncDirections = dirs

	intervals := make(map[string]int, len(c.SyncIntervals))
	for k, v := range c.SyncIntervals {
		intervals[CanonicalType(k)] = v
	}
	c.SyncIntervals = intervals

	enabled := make(map[string]bool, len(c.Enabled))
	for k, v := range c.Enabled {
		enabled[CanonicalType(k)] = v
	}
	c.Enabled = enabled

	if c.BatchSize == 0 {
		c.BatchSize = defaultBatchSize
	}
	c.MergePriority = models.System(strings.ToUpper(string(c.MergePriority)))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(connectionParamsValidation, ConnectionParams{})
	return v
}

func connectionParamsValidation(sl validator.StructLevel) {
	p := sl.Current().Interface().(ConnectionParams)
	switch p.Driver {
	case DriverPostgres, DriverMySQL:
		if p.Host == "" {
			sl.ReportError(p.Host, "Host", "host", "required", "")
		}
		if p.Database == "" {
			sl.ReportError(p.Database, "Database", "database", "required", "")
		}
	case DriverREST:
		if p.BaseURL == "" {
			sl.ReportError(p.BaseURL, "BaseURL", "base_url", "required", "")
		}
	}
}

// Validate checks the configuration and returns a field -> tag description on failure
func (c *IntegrationConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return fmt.Errorf("invalid integration config: %v", ProcessValidationErrors(verrs))
		}
		return fmt.Errorf("invalid integration config: %w", err)
	}
	return nil
}

// ProcessValidationErrors flattens validator errors into namespace -> failed tag
func ProcessValidationErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Namespace()] = fe.Tag()
	}
	return out
}

// FileStore loads and saves the integration configuration as a JSON file
type FileStore struct {
	path string
}

// NewFileStore creates a store for the given path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the configuration. A missing file yields the defaults, which are
// saved. Connection secrets come from the environment.
func (s *FileStore) Load() (*IntegrationConfig, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		cfg := DefaultIntegrationConfig()
		if err := s.Save(cfg); err != nil {
			return nil, err
		}
		cfg.loadSecrets()
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	v.SetEnvPrefix("P6EBS")
	v.AutomaticEnv()
	v.SetDefault("batchsize", defaultBatchSize)
	v.SetDefault("retrycount", 3)
	v.SetDefault("retrydelayms", 5000)
	v.SetDefault("loglevel", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read integration config %s: %w", s.path, err)
	}

	cfg := &IntegrationConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode integration config: %w", err)
	}
	cfg.normalize()
	cfg.loadSecrets()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save validates and writes the configuration atomically
func (s *FileStore) Save(cfg *IntegrationConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode integration config: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write integration config: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Provider holds the live integration configuration and persists updates
type Provider struct {
	mu    sync.RWMutex
	cfg   *IntegrationConfig
	store *FileStore
}

// NewProvider loads the configuration from store
func NewProvider(store *FileStore) (*Provider, error) {
	cfg, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, store: store}, nil
}

// NewStaticProvider wraps an in-memory configuration that is never persisted
func NewStaticProvider(cfg *IntegrationConfig) *Provider {
	return &Provider{cfg: cfg}
}

// Get returns a snapshot of the current configuration
func (p *Provider) Get() *IntegrationConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.Clone()
}

// DirectionFor returns the configured direction for an integration type
func (p *Provider) DirectionFor(integrationType string) models.Direction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.DirectionFor(integrationType)
}

// Update applies fn to a copy of the configuration, validates and saves it, then swaps it in
func (p *Provider) Update(fn func(cfg *IntegrationConfig)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.cfg.Clone()
	fn(next)
	if err := next.Validate(); err != nil {
		return err
	}
	if p.store != nil {
		if err := p.store.Save(next); err != nil {
			return err
		}
	}
	p.cfg = next
	return nil
}
