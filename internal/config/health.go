package config

import (
	"errors"
	"time"
)

// HealthConfig contains health monitoring configuration
type HealthConfig struct {
	Interval       time.Duration `json:"interval" yaml:"interval"`
	CheckTimeout   time.Duration `json:"check_timeout" yaml:"check_timeout"`
	QueueWarnRatio float64       `json:"queue_warn_ratio" yaml:"queue_warn_ratio"`
	MemorySoftMB   uint64        `json:"memory_soft_mb" yaml:"memory_soft_mb"`
}

// DefaultHealthConfig returns default health monitoring configuration
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		Interval:       30 * time.Second,
		CheckTimeout:   5 * time.Second,
		QueueWarnRatio: 0.8,
		MemorySoftMB:   512,
	}
}

// Validate validates the health monitoring configuration
func (h *HealthConfig) Validate() error {
	var errs []error

	if h.Interval <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	if h.CheckTimeout <= 0 {
		errs = append(errs, errors.New("check_timeout must be positive"))
	}
	if h.CheckTimeout >= h.Interval {
		errs = append(errs, errors.New("check_timeout must be shorter than interval"))
	}
	if h.QueueWarnRatio <= 0 || h.QueueWarnRatio > 1 {
		errs = append(errs, errors.New("queue_warn_ratio must be in (0, 1]"))
	}
	if h.MemorySoftMB == 0 {
		errs = append(errs, errors.New("memory_soft_mb must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
