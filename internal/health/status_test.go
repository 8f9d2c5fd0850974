package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckResult
		want   State
	}{
		{
			name:   "no checks",
			checks: map[string]CheckResult{},
			want:   StateHealthy,
		},
		{
			name: "all passing",
			checks: map[string]CheckResult{
				"api":      {Status: CheckPass},
				"database": {Status: CheckPass},
			},
			want: StateHealthy,
		},
		{
			name: "single warning degrades",
			checks: map[string]CheckResult{
				"api":     {Status: CheckPass},
				"network": {Status: CheckWarn, Message: "latency high"},
			},
			want: StateDegraded,
		},
		{
			name: "failure dominates warning",
			checks: map[string]CheckResult{
				"api":      {Status: CheckPass},
				"network":  {Status: CheckWarn},
				"database": {Status: CheckFail, Message: "timeout"},
			},
			want: StateUnhealthy,
		},
		{
			name: "single failure alone",
			checks: map[string]CheckResult{
				"database": {Status: CheckFail},
			},
			want: StateUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.checks))
		})
	}
}
