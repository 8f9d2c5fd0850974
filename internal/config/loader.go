package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/beaconkit/beacon/internal/constants"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration with precedence:
// 1. Explicit CLI flags (highest priority)
// 2. Environment variables
// 3. Configuration file values
// 4. Default configuration values (lowest priority)
func LoadConfig(configFile string, cliFlags *CLIFlags) (*Config, error) {
	// Start with default configuration
	config := DefaultConfig()

	// Load from configuration file if provided
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		mergeConfig(config, fileConfig)
	}

	// Load from environment variables
	loadFromEnv(config)

	// Override with explicitly set CLI flags
	if cliFlags != nil {
		overrideWithCLI(config, cliFlags)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// CLIFlags contains CLI flag values that can override configuration.
// Only flags the user actually set (per pflag's Changed) take effect.
type CLIFlags struct {
	Host              *string
	Port              *string
	MetricsPort       *string
	Version           *string
	Environment       *string
	CollectorURL      *string
	CollectorAPIKey   *string
	StateDir          *string
	LogLevel          *string
	LogFormat         *string
	ShutdownTimeout   *time.Duration
	HotReload         *bool
	HotReloadDebounce *time.Duration
	TLSEnabled        *bool
	TLSCertFile       *string
	TLSKeyFile        *string
}

// loadFromFile loads configuration from a YAML or JSON file
func loadFromFile(filePath string) (*Config, error) {
	// Normalize path to absolute for consistency
	if !filepath.IsAbs(filePath) {
		absPath, err := filepath.Abs(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for %s: %w", filePath, err)
		}
		filePath = absPath
	}

	// Validate file path to prevent directory traversal
	if err := validateFilePath(filePath); err != nil {
		return nil, fmt.Errorf("invalid config file path %s: %w", filePath, err)
	}

	data, err := os.ReadFile(filePath) // #nosec G304 - file path validated by validateFilePath()
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	config := &Config{}
	ext := filepath.Ext(filePath)
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(config *Config) {
	if val := os.Getenv(constants.EnvHost); val != "" {
		config.Server.Host = val
	}
	if val := os.Getenv(constants.EnvPort); val != "" {
		config.Server.Port = val
	}
	if val := os.Getenv(constants.EnvMetricsPort); val != "" {
		config.Server.MetricsPort = val
	}
	if val := os.Getenv(constants.EnvReadTimeout); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.Server.ReadTimeout = duration
		}
	}
	if val := os.Getenv(constants.EnvWriteTimeout); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.Server.WriteTimeout = duration
		}
	}
	if val := os.Getenv(constants.EnvIdleTimeout); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.Server.IdleTimeout = duration
		}
	}
	if val := os.Getenv(constants.EnvShutdownTimeout); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.Server.ShutdownTimeout = duration
		}
	}
	if val := os.Getenv(constants.EnvVersion); val != "" {
		config.Version = val
	}
	if val := os.Getenv(constants.EnvEnvironment); val != "" {
		config.Environment = val
	}
	if val := os.Getenv(constants.EnvCollectorURL); val != "" {
		config.Collector.URL = val
	}
	if val := os.Getenv(constants.EnvCollectorAPIKey); val != "" {
		config.Collector.APIKey = val
	}
	if val := os.Getenv(constants.EnvStateDir); val != "" {
		config.Store.Dir = val
	}
	if val := os.Getenv(constants.EnvLogLevel); val != "" {
		config.Observability.Logging.Level = val
	}
	if val := os.Getenv(constants.EnvLogFormat); val != "" {
		config.Observability.Logging.Format = val
	}
	if val := os.Getenv(constants.EnvHotReload); val != "" {
		if enabled, err := parseBool(val); err == nil {
			config.HotReload.Enabled = enabled
		}
	}
	if val := os.Getenv(constants.EnvHotReloadDebounce); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.HotReload.Debounce = duration
		}
	}
	if val := os.Getenv(constants.EnvTLSEnabled); val != "" {
		if enabled, err := parseBool(val); err == nil {
			config.TLS.Enabled = enabled
		}
	}
	if val := os.Getenv(constants.EnvTLSCertFile); val != "" {
		config.TLS.CertFile = val
	}
	if val := os.Getenv(constants.EnvTLSKeyFile); val != "" {
		config.TLS.KeyFile = val
	}
}

func parseBool(val string) (bool, error) {
	switch strings.ToLower(val) {
	case "1", "t", "true", "yes", "on":
		return true, nil
	case "0", "f", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value: %s", val)
}

// overrideWithCLI overrides configuration with CLI flag values.
// Only explicitly set CLI flags override other configuration sources.
func overrideWithCLI(config *Config, flags *CLIFlags) {
	if flags == nil {
		return
	}

	if flags.Host != nil && flagChanged("host") {
		config.Server.Host = *flags.Host
	}
	if flags.Port != nil && flagChanged("port") {
		config.Server.Port = *flags.Port
	}
	if flags.MetricsPort != nil && flagChanged("metrics-port") {
		config.Server.MetricsPort = *flags.MetricsPort
	}
	if flags.Version != nil && flagChanged("app-version") {
		config.Version = *flags.Version
	}
	if flags.Environment != nil && flagChanged("environment") {
		config.Environment = *flags.Environment
	}
	if flags.CollectorURL != nil && flagChanged("collector-url") {
		config.Collector.URL = *flags.CollectorURL
	}
	if flags.CollectorAPIKey != nil && flagChanged("collector-api-key") {
		config.Collector.APIKey = *flags.CollectorAPIKey
	}
	if flags.StateDir != nil && flagChanged("state-dir") {
		config.Store.Dir = *flags.StateDir
	}
	if flags.LogLevel != nil && flagChanged("log-level") {
		config.Observability.Logging.Level = *flags.LogLevel
	}
	if flags.LogFormat != nil && flagChanged("log-format") {
		config.Observability.Logging.Format = *flags.LogFormat
	}
	if flags.ShutdownTimeout != nil && flagChanged("shutdown-timeout") {
		config.Server.ShutdownTimeout = *flags.ShutdownTimeout
	}
	if flags.HotReload != nil && flagChanged("hot-reload") {
		config.HotReload.Enabled = *flags.HotReload
	}
	if flags.HotReloadDebounce != nil && flagChanged("hot-reload-debounce") {
		config.HotReload.Debounce = *flags.HotReloadDebounce
	}
	if flags.TLSEnabled != nil && flagChanged("tls-enabled") {
		config.TLS.Enabled = *flags.TLSEnabled
	}
	if flags.TLSCertFile != nil && flagChanged("tls-cert-file") {
		config.TLS.CertFile = *flags.TLSCertFile
	}
	if flags.TLSKeyFile != nil && flagChanged("tls-key-file") {
		config.TLS.KeyFile = *flags.TLSKeyFile
	}
}

func flagChanged(name string) bool {
	f := pflag.Lookup(name)
	return f != nil && f.Changed
}

// mergeConfig merges file configuration into the base configuration
func mergeConfig(base *Config, file *Config) {
	if file.Version != "" {
		base.Version = file.Version
	}
	if file.Environment != "" {
		base.Environment = file.Environment
	}

	if file.Server.Host != "" {
		base.Server.Host = file.Server.Host
	}
	if file.Server.Port != "" {
		base.Server.Port = file.Server.Port
	}
	if file.Server.MetricsPort != "" {
		base.Server.MetricsPort = file.Server.MetricsPort
	}
	if file.Server.ReadTimeout > 0 {
		base.Server.ReadTimeout = file.Server.ReadTimeout
	}
	if file.Server.WriteTimeout > 0 {
		base.Server.WriteTimeout = file.Server.WriteTimeout
	}
	if file.Server.IdleTimeout > 0 {
		base.Server.IdleTimeout = file.Server.IdleTimeout
	}
	if file.Server.MaxRequestSize > 0 {
		base.Server.MaxRequestSize = file.Server.MaxRequestSize
	}
	if file.Server.ShutdownTimeout > 0 {
		base.Server.ShutdownTimeout = file.Server.ShutdownTimeout
	}
	if file.Server.CORS.Enabled != base.Server.CORS.Enabled {
		base.Server.CORS = file.Server.CORS
	}

	if file.Observability.Logging.Level != "" {
		base.Observability.Logging.Level = file.Observability.Logging.Level
	}
	if file.Observability.Logging.Format != "" {
		base.Observability.Logging.Format = file.Observability.Logging.Format
	}
	if file.Observability.Logging.Output != "" {
		base.Observability.Logging.Output = file.Observability.Logging.Output
	}
	if file.Observability.Metrics.Enabled != base.Observability.Metrics.Enabled {
		base.Observability.Metrics = file.Observability.Metrics
	}
	if file.Observability.Metrics.Path != "" {
		base.Observability.Metrics.Path = file.Observability.Metrics.Path
	}
	if file.Observability.Tracing.Enabled != base.Observability.Tracing.Enabled {
		base.Observability.Tracing = file.Observability.Tracing
	}
	if file.Observability.Tracing.ServiceName != "" {
		base.Observability.Tracing.ServiceName = file.Observability.Tracing.ServiceName
	}

	if file.Telemetry.QueueSize > 0 {
		base.Telemetry.QueueSize = file.Telemetry.QueueSize
	}
	if file.Telemetry.FlushInterval > 0 {
		base.Telemetry.FlushInterval = file.Telemetry.FlushInterval
	}
	if file.Telemetry.SendTimeout > 0 {
		base.Telemetry.SendTimeout = file.Telemetry.SendTimeout
	}
	if file.Telemetry.RetryBufferSize > 0 {
		base.Telemetry.RetryBufferSize = file.Telemetry.RetryBufferSize
	}
	if file.Telemetry.Retry.MaxAttempts > 0 {
		base.Telemetry.Retry.MaxAttempts = file.Telemetry.Retry.MaxAttempts
	}
	if file.Telemetry.Retry.InitialDelay > 0 {
		base.Telemetry.Retry.InitialDelay = file.Telemetry.Retry.InitialDelay
	}
	if file.Telemetry.Retry.MaxDelay > 0 {
		base.Telemetry.Retry.MaxDelay = file.Telemetry.Retry.MaxDelay
	}
	if file.Telemetry.Retry.Multiplier > 0 {
		base.Telemetry.Retry.Multiplier = file.Telemetry.Retry.Multiplier
	}

	if file.Health.Interval > 0 {
		base.Health.Interval = file.Health.Interval
	}
	if file.Health.CheckTimeout > 0 {
		base.Health.CheckTimeout = file.Health.CheckTimeout
	}
	if file.Health.QueueWarnRatio > 0 {
		base.Health.QueueWarnRatio = file.Health.QueueWarnRatio
	}
	if file.Health.MemorySoftMB > 0 {
		base.Health.MemorySoftMB = file.Health.MemorySoftMB
	}

	if file.Errors.MaxFingerprints > 0 {
		base.Errors.MaxFingerprints = file.Errors.MaxFingerprints
	}
	if file.Errors.Retention > 0 {
		base.Errors.Retention = file.Errors.Retention
	}
	if len(file.Errors.EmitOccurrences) > 0 {
		base.Errors.EmitOccurrences = file.Errors.EmitOccurrences
	}
	if file.Errors.EmitEvery > 0 {
		base.Errors.EmitEvery = file.Errors.EmitEvery
	}
	if file.Errors.EmitPerSecond > 0 {
		base.Errors.EmitPerSecond = file.Errors.EmitPerSecond
	}
	if file.Errors.EmitBurst > 0 {
		base.Errors.EmitBurst = file.Errors.EmitBurst
	}

	if file.Collector.URL != "" {
		base.Collector.URL = file.Collector.URL
	}
	if file.Collector.APIKey != "" {
		base.Collector.APIKey = file.Collector.APIKey
	}
	if file.Collector.Timeout > 0 {
		base.Collector.Timeout = file.Collector.Timeout
	}
	if file.Collector.SendsPerSecond > 0 {
		base.Collector.SendsPerSecond = file.Collector.SendsPerSecond
	}
	if file.Collector.SendBurst > 0 {
		base.Collector.SendBurst = file.Collector.SendBurst
	}

	if file.Store.Dir != "" {
		base.Store.Dir = file.Store.Dir
	}
	if file.Store.MaxBytes > 0 {
		base.Store.MaxBytes = file.Store.MaxBytes
	}

	if file.HotReload.Enabled != base.HotReload.Enabled {
		base.HotReload.Enabled = file.HotReload.Enabled
	}
	if file.HotReload.Debounce > 0 {
		base.HotReload.Debounce = file.HotReload.Debounce
	}

	if file.TLS.Enabled != base.TLS.Enabled {
		base.TLS.Enabled = file.TLS.Enabled
	}
	if file.TLS.CertFile != "" {
		base.TLS.CertFile = file.TLS.CertFile
	}
	if file.TLS.KeyFile != "" {
		base.TLS.KeyFile = file.TLS.KeyFile
	}
}

// validateFilePath checks if the file path is safe to read
// Prevents directory traversal attacks and ensures the file is within expected locations
func validateFilePath(filePath string) error {
	// Get absolute path and clean it
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	// Clean the path to remove any .. or . components
	cleanPath := filepath.Clean(absPath)

	// Ensure the path doesn't contain any suspicious patterns
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains directory traversal attempts")
	}

	return nil
}
