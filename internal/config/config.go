// Package config provides configuration management for the items API server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultEventsEnabled   = true
	DefaultDocsEnabled     = true
)

// DefaultCORSOrigins allows any origin.
var DefaultCORSOrigins = []string{"*"}

// Environment variable names.
const (
	EnvConfigFile      = "APP_CONFIG_FILE"
	EnvServerPort      = "APP_SERVER_PORT"
	EnvLogLevel        = "APP_LOG_LEVEL"
	EnvShutdownTimeout = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled  = "APP_METRICS_ENABLED"
	EnvEventsEnabled   = "APP_EVENTS_ENABLED"
	EnvDocsEnabled     = "APP_DOCS_ENABLED"
	EnvCORSOrigins     = "APP_CORS_ORIGINS"
)

// Config holds the application configuration.
type Config struct {
	ServerPort      int           `yaml:"server_port"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MetricsEnabled  bool          `yaml:"metrics_enabled"`

	// EventsEnabled exposes the item event feed at /ws.
	EventsEnabled bool `yaml:"events_enabled"`

	// DocsEnabled serves the OpenAPI document at /openapi.json.
	DocsEnabled bool `yaml:"docs_enabled"`

	CORSOrigins []string `yaml:"cors_origins"`
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrEmptyCORSOrigins       = errors.New("at least one CORS origin is required")
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Default returns a configuration populated with default values.
func Default() *Config {
	return &Config{
		ServerPort:      DefaultServerPort,
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  DefaultMetricsEnabled,
		EventsEnabled:   DefaultEventsEnabled,
		DocsEnabled:     DefaultDocsEnabled,
		CORSOrigins:     append([]string(nil), DefaultCORSOrigins...),
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in increasing order of priority.
// When path is empty the file named by APP_CONFIG_FILE is used, if any.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the values present in a YAML file.
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	return nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	for env, dst := range map[string]*bool{
		EnvMetricsEnabled: &c.MetricsEnabled,
		EnvEventsEnabled:  &c.EventsEnabled,
		EnvDocsEnabled:    &c.DocsEnabled,
	} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", env, err)
		}
		*dst = enabled
	}

	if val := os.Getenv(EnvCORSOrigins); val != "" {
		c.CORSOrigins = splitList(val)
	}

	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if len(c.CORSOrigins) == 0 {
		return ErrEmptyCORSOrigins
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// splitList parses a comma separated list, dropping empty entries.
func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
