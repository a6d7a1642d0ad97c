package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Port                  string
	DBConnectionString    string
	IntegrationConfigFile string
	CorrelationFile       string
	ReportsDir            string
	RedisAddr             string
	RedisPassword         string
	LogLevel              string
	NotifyWebhookURL      string
	Simulator             bool
	ShutdownTimeout       time.Duration
}

func Load() (*Config, error) {
	home := getEnv("P6EBS_HOME", defaultHome())

	simulator, err := strconv.ParseBool(getEnv("SIMULATOR", "false"))
	if err != nil {
		return nil, err
	}

	shutdownSeconds, err := strconv.Atoi(getEnv("SHUTDOWN_TIMEOUT_SECONDS", "30"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                  getEnv("PORT", "8080"),
		DBConnectionString:    getEnv("DB_CONNECTION_STRING", ""),
		IntegrationConfigFile: getEnv("INTEGRATION_CONFIG_FILE", filepath.Join(home, "integration_config.json")),
		CorrelationFile:       getEnv("CORRELATION_FILE", filepath.Join(home, "id_correlations.json")),
		ReportsDir:            getEnv("REPORTS_DIR", filepath.Join(home, "reports")),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		NotifyWebhookURL:      getEnv("NOTIFY_WEBHOOK_URL", ""),
		Simulator:             simulator,
		ShutdownTimeout:       time.Duration(shutdownSeconds) * time.Second,
	}, nil
}

func defaultHome() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ".p6ebs"
	}
	return filepath.Join(dir, ".p6ebs")
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
