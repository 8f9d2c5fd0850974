package config

import (
	"errors"
)

// StoreConfig contains the durable event spool configuration
type StoreConfig struct {
	Dir      string `json:"dir" yaml:"dir"`
	MaxBytes int64  `json:"max_bytes" yaml:"max_bytes"`
}

// DefaultStoreConfig returns default store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Dir:      "data",
		MaxBytes: 5 * 1024 * 1024,
	}
}

// Validate validates the store configuration
func (s *StoreConfig) Validate() error {
	var errs []error

	if s.Dir == "" {
		errs = append(errs, errors.New("dir cannot be empty"))
	}
	if s.MaxBytes <= 0 {
		errs = append(errs, errors.New("max_bytes must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
