package config

import (
	"errors"
	"time"
)

// ErrorsConfig contains error capture configuration
type ErrorsConfig struct {
	MaxFingerprints int           `json:"max_fingerprints" yaml:"max_fingerprints"`
	Retention       time.Duration `json:"retention" yaml:"retention"`
	EmitOccurrences []int         `json:"emit_occurrences" yaml:"emit_occurrences"`
	EmitEvery       int           `json:"emit_every" yaml:"emit_every"`
	EmitPerSecond   float64       `json:"emit_per_second" yaml:"emit_per_second"`
	EmitBurst       int           `json:"emit_burst" yaml:"emit_burst"`
}

// DefaultErrorsConfig returns default error capture configuration
func DefaultErrorsConfig() ErrorsConfig {
	return ErrorsConfig{
		MaxFingerprints: 200,
		Retention:       24 * time.Hour,
		EmitOccurrences: []int{1, 10, 100, 1000},
		EmitEvery:       1000,
		EmitPerSecond:   10,
		EmitBurst:       20,
	}
}

// Validate validates the error capture configuration
func (e *ErrorsConfig) Validate() error {
	var errs []error

	if e.MaxFingerprints <= 0 {
		errs = append(errs, errors.New("max_fingerprints must be positive"))
	}
	if e.Retention <= 0 {
		errs = append(errs, errors.New("retention must be positive"))
	}
	if len(e.EmitOccurrences) == 0 {
		errs = append(errs, errors.New("emit_occurrences must not be empty"))
	}
	for _, n := range e.EmitOccurrences {
		if n <= 0 {
			errs = append(errs, errors.New("emit_occurrences entries must be positive"))
			break
		}
	}
	if e.EmitEvery < 0 {
		errs = append(errs, errors.New("emit_every must be non-negative"))
	}
	if e.EmitPerSecond <= 0 {
		errs = append(errs, errors.New("emit_per_second must be positive"))
	}
	if e.EmitBurst <= 0 {
		errs = append(errs, errors.New("emit_burst must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
