package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/guestflow/guestflow/pkg/observability"
	"github.com/guestflow/guestflow/pkg/storage/postgres"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// PostgreSQL configuration
	Postgres postgres.Config

	// Redis configuration
	Redis RedisConfig

	// Dashboard configuration
	Dashboard DashboardConfig

	// Refresher configuration
	Refresher RefresherConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// RedisConfig holds dashboard cache connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int

	// Enabled false runs the dashboard without the Redis cache.
	Enabled bool
}

// DashboardConfig holds dashboard assembly settings
type DashboardConfig struct {
	// EventNameCacheSize bounds the in-process event name LRU.
	EventNameCacheSize int
}

// RefresherConfig holds recurring metrics refresh settings
type RefresherConfig struct {
	// Schedule is a cron expression; the default refreshes every
	// five minutes.
	Schedule string

	// RunTimeout bounds a single refresh pass.
	RunTimeout time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Postgres:      loadPostgresConfig(),
		Redis:         loadRedisConfig(),
		Dashboard:     loadDashboardConfig(),
		Refresher:     loadRefresherConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("GUESTFLOW_HOST", "0.0.0.0"),
		Port:            getEnv("GUESTFLOW_PORT", "8080"),
		ReadTimeout:     getEnvDuration("GUESTFLOW_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("GUESTFLOW_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("GUESTFLOW_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("GUESTFLOW_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("GUESTFLOW_HEALTH_PORT", "9090"),
	}
}

// loadPostgresConfig loads database configuration from environment
func loadPostgresConfig() postgres.Config {
	cfg := postgres.DefaultConfig()

	if url := getEnv("GUESTFLOW_POSTGRES_URL", ""); url != "" {
		cfg.URL = url
	}
	if maxConns := getEnvInt("GUESTFLOW_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns := getEnvInt("GUESTFLOW_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.MinConns = minConns
	}
	if timeout := getEnvDuration("GUESTFLOW_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.ConnTimeout = timeout
	}
	cfg.InitSchema = getEnvBool("GUESTFLOW_POSTGRES_INIT_SCHEMA", cfg.InitSchema)

	return cfg
}

// loadRedisConfig loads cache configuration from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     getEnv("GUESTFLOW_REDIS_ADDR", "localhost:6379"),
		Password: getEnv("GUESTFLOW_REDIS_PASSWORD", ""),
		DB:       getEnvInt("GUESTFLOW_REDIS_DB", 0),
		PoolSize: getEnvInt("GUESTFLOW_REDIS_POOL_SIZE", 10),
		Enabled:  getEnvBool("GUESTFLOW_CACHE_ENABLED", true),
	}
}

// loadDashboardConfig loads dashboard configuration from environment
func loadDashboardConfig() DashboardConfig {
	return DashboardConfig{
		EventNameCacheSize: getEnvInt("GUESTFLOW_EVENT_NAME_CACHE_SIZE", 1024),
	}
}

// loadRefresherConfig loads refresh job configuration from environment
func loadRefresherConfig() RefresherConfig {
	return RefresherConfig{
		Schedule:   getEnv("GUESTFLOW_REFRESH_SCHEDULE", "*/5 * * * *"),
		RunTimeout: getEnvDuration("GUESTFLOW_REFRESH_RUN_TIMEOUT", 4*time.Minute),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       parseLogLevel(getEnv("GUESTFLOW_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("GUESTFLOW_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Postgres.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when caching is enabled")
	}

	if c.Refresher.Schedule == "" {
		return fmt.Errorf("refresh schedule is required")
	}
	if c.Refresher.RunTimeout <= 0 {
		return fmt.Errorf("refresh run timeout must be positive")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
