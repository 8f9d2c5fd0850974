// Package retry provides exponential backoff schedules for operations that
// may fail transiently, such as delivering telemetry batches to a collector.
package retry

import (
	"errors"
	"math/rand"
	"time"
)

// Policy describes an exponential backoff schedule with an attempt cap.
type Policy struct {
	MaxAttempts  int           `json:"max_attempts" yaml:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay" yaml:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay" yaml:"max_delay"`
	Multiplier   float64       `json:"multiplier" yaml:"multiplier"`
	Jitter       bool          `json:"jitter" yaml:"jitter"`
}

// DefaultPolicy returns a conservative backoff schedule: 1s doubling up to
// 30s, five attempts, with jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Validate validates the backoff policy
func (p Policy) Validate() error {
	var errs []error

	if p.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max_attempts must be positive"))
	}
	if p.InitialDelay <= 0 {
		errs = append(errs, errors.New("initial_delay must be positive"))
	}
	if p.MaxDelay < p.InitialDelay {
		errs = append(errs, errors.New("max_delay must be at least initial_delay"))
	}
	if p.Multiplier < 1 {
		errs = append(errs, errors.New("multiplier must be at least 1"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Delay returns how long to wait after the given 1-based failed attempt.
// The delay grows by Multiplier per attempt and is capped at MaxDelay.
// With Jitter enabled, up to 25% of the delay is added randomly so that
// retries from independent producers spread out.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= p.Multiplier
		if delay >= float64(p.MaxDelay) {
			delay = float64(p.MaxDelay)
			break
		}
	}

	d := time.Duration(delay)
	if d > p.MaxDelay {
		d = p.MaxDelay
	}

	if p.Jitter && d > 0 {
		d += time.Duration(rand.Int63n(int64(d)/4 + 1)) // #nosec G404 - jitter does not need crypto randomness
	}

	return d
}

// Exhausted reports whether the given number of failed attempts has reached
// the policy's cap.
func (p Policy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}
