package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// CollectorConfig contains the telemetry collector endpoint configuration.
// An empty URL disables sending; events are still queued and spooled locally.
type CollectorConfig struct {
	URL            string        `json:"url" yaml:"url"`
	APIKey         string        `json:"api_key" yaml:"api_key"`
	Timeout        time.Duration `json:"timeout" yaml:"timeout"`
	SendsPerSecond float64       `json:"sends_per_second" yaml:"sends_per_second"`
	SendBurst      int           `json:"send_burst" yaml:"send_burst"`
}

// DefaultCollectorConfig returns default collector configuration
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		URL:            "",
		APIKey:         "",
		Timeout:        10 * time.Second,
		SendsPerSecond: 5,
		SendBurst:      10,
	}
}

// Validate validates the collector configuration
func (c *CollectorConfig) Validate() error {
	var errs []error

	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			errs = append(errs, fmt.Errorf("url is not a valid URL: %w", err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, fmt.Errorf("url scheme must be http or https, got %q", u.Scheme))
		}
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.SendsPerSecond <= 0 {
		errs = append(errs, errors.New("sends_per_second must be positive"))
	}
	if c.SendBurst <= 0 {
		errs = append(errs, errors.New("send_burst must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
