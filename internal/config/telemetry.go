package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/beaconkit/beacon/internal/retry"
)

// TelemetryConfig contains event logging configuration
type TelemetryConfig struct {
	QueueSize       int           `json:"queue_size" yaml:"queue_size"`
	FlushInterval   time.Duration `json:"flush_interval" yaml:"flush_interval"`
	SendTimeout     time.Duration `json:"send_timeout" yaml:"send_timeout"`
	RetryBufferSize int           `json:"retry_buffer_size" yaml:"retry_buffer_size"`
	Retry           retry.Policy  `json:"retry" yaml:"retry"`
}

// DefaultTelemetryConfig returns default telemetry configuration
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		QueueSize:       500,
		FlushInterval:   10 * time.Second,
		SendTimeout:     10 * time.Second,
		RetryBufferSize: 20,
		Retry:           retry.DefaultPolicy(),
	}
}

// Validate validates the telemetry configuration
func (t *TelemetryConfig) Validate() error {
	var errs []error

	if t.QueueSize <= 0 {
		errs = append(errs, errors.New("queue_size must be positive"))
	}
	if t.FlushInterval <= 0 {
		errs = append(errs, errors.New("flush_interval must be positive"))
	}
	if t.SendTimeout <= 0 {
		errs = append(errs, errors.New("send_timeout must be positive"))
	}
	if t.RetryBufferSize <= 0 {
		errs = append(errs, errors.New("retry_buffer_size must be positive"))
	}
	if err := t.Retry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("retry: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
