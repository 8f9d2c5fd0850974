// Package errwatch captures application errors and recovered panics,
// deduplicates them by fingerprint, and forwards a rate-limited subset
// to telemetry so that a noisy failure cannot flood the collector.
package errwatch

import "time"

// Source identifies where an error was intercepted.
type Source string

const (
	// SourceRuntime covers errors reported directly by application code.
	SourceRuntime Source = "runtime"
	// SourceHTTP covers panics recovered while serving a request.
	SourceHTTP Source = "http"
	// SourceTask covers panics recovered in background goroutines.
	SourceTask Source = "task"
)

// CapturedError is one deduplicated error: all occurrences sharing a
// fingerprint collapse into a single entry with a running count.
type CapturedError struct {
	Fingerprint string            `json:"fingerprint"`
	Message     string            `json:"message"`
	Frame       string            `json:"frame"`
	Source      Source            `json:"source"`
	Context     map[string]string `json:"context,omitempty"`
	Count       int               `json:"count"`
	FirstSeen   time.Time         `json:"first_seen"`
	LastSeen    time.Time         `json:"last_seen"`
}

// Emitter receives the occurrences selected for emission. It is
// satisfied by the telemetry logger.
type Emitter interface {
	Error(name string, attrs map[string]string)
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}
