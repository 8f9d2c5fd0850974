// Package health runs registered checks on a schedule, aggregates their
// results into an overall application state, and keeps the latest
// snapshot available for the admin endpoints.
package health

import "time"

// State is the aggregated application health.
type State string

const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

// CheckStatus is the outcome of a single check.
type CheckStatus string

const (
	CheckPass CheckStatus = "pass"
	CheckWarn CheckStatus = "warn"
	CheckFail CheckStatus = "fail"
)

// CheckResult is the recorded outcome of one check execution.
type CheckResult struct {
	Status     CheckStatus `json:"status"`
	DurationMs float64     `json:"duration_ms"`
	Message    string      `json:"message,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Status is a complete health snapshot. The Checks map is always fully
// populated: a snapshot never exposes a partially evaluated cycle.
type Status struct {
	Overall     State                  `json:"status"`
	Checks      map[string]CheckResult `json:"checks"`
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	Timestamp   time.Time              `json:"timestamp"`
}

// Aggregate derives the overall state from individual results: any
// failing check makes the application unhealthy, otherwise any warning
// makes it degraded. An empty set of checks is healthy.
func Aggregate(checks map[string]CheckResult) State {
	state := StateHealthy
	for _, result := range checks {
		switch result.Status {
		case CheckFail:
			return StateUnhealthy
		case CheckWarn:
			state = StateDegraded
		}
	}
	return state
}
