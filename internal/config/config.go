package config

import (
	"fmt"
)

// Config represents the unified configuration structure
type Config struct {
	Version       string              `json:"version" yaml:"version"`
	Environment   string              `json:"environment" yaml:"environment"`
	Server        ServerConfig        `json:"server" yaml:"server"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
	Telemetry     TelemetryConfig     `json:"telemetry" yaml:"telemetry"`
	Health        HealthConfig        `json:"health" yaml:"health"`
	Errors        ErrorsConfig        `json:"errors" yaml:"errors"`
	Collector     CollectorConfig     `json:"collector" yaml:"collector"`
	Store         StoreConfig         `json:"store" yaml:"store"`
	HotReload     HotReloadConfig     `json:"hot_reload" yaml:"hot_reload"`
	TLS           TLSConfig           `json:"tls" yaml:"tls"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:       "dev",
		Environment:   "development",
		Server:        DefaultServerConfig(),
		Observability: DefaultObservabilityConfig(),
		Telemetry:     DefaultTelemetryConfig(),
		Health:        DefaultHealthConfig(),
		Errors:        DefaultErrorsConfig(),
		Collector:     DefaultCollectorConfig(),
		Store:         DefaultStoreConfig(),
		HotReload:     DefaultHotReloadConfig(),
		TLS:           DefaultTLSConfig(),
	}
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version cannot be empty")
	}
	if c.Environment == "" {
		return fmt.Errorf("environment cannot be empty")
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability config validation failed: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry config validation failed: %w", err)
	}
	if err := c.Health.Validate(); err != nil {
		return fmt.Errorf("health config validation failed: %w", err)
	}
	if err := c.Errors.Validate(); err != nil {
		return fmt.Errorf("errors config validation failed: %w", err)
	}
	if err := c.Collector.Validate(); err != nil {
		return fmt.Errorf("collector config validation failed: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config validation failed: %w", err)
	}
	if err := c.HotReload.Validate(); err != nil {
		return fmt.Errorf("hot reload config validation failed: %w", err)
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("tls config validation failed: %w", err)
	}
	return nil
}

// GetServerAddress returns the full admin server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// GetMetricsAddress returns the full metrics server address
func (c *Config) GetMetricsAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.MetricsPort)
}
