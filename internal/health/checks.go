package health

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
)

// Reachable probes an HTTP endpoint with a HEAD request. Server errors
// fail the check; client errors such as 401 or 404 mean the endpoint is
// up but likely misconfigured, which only warrants a warning.
func Reachable(rawURL string, client *http.Client) CheckFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) (CheckStatus, string) {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
		if err != nil {
			return CheckFail, fmt.Sprintf("invalid endpoint: %v", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return CheckFail, err.Error()
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return CheckFail, fmt.Sprintf("endpoint returned %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return CheckWarn, fmt.Sprintf("endpoint returned %d", resp.StatusCode)
		}
		return CheckPass, ""
	}
}

// DiskWritable verifies the state directory accepts writes by creating
// and removing a probe file.
func DiskWritable(dir string) CheckFunc {
	return func(ctx context.Context) (CheckStatus, string) {
		f, err := os.CreateTemp(dir, ".probe-*")
		if err != nil {
			return CheckFail, fmt.Sprintf("cannot create file: %v", err)
		}
		name := f.Name()
		_, werr := f.WriteString("ok")
		cerr := f.Close()
		os.Remove(name)

		if werr != nil {
			return CheckFail, fmt.Sprintf("cannot write: %v", werr)
		}
		if cerr != nil {
			return CheckFail, fmt.Sprintf("cannot close: %v", cerr)
		}
		return CheckPass, ""
	}
}

// QueuePressure watches the telemetry queue: filling past warnAt of
// capacity degrades the application, a full queue fails the check
// because events are being dropped.
func QueuePressure(depth func() int, capacity int, warnAt float64) CheckFunc {
	return func(ctx context.Context) (CheckStatus, string) {
		if capacity <= 0 {
			return CheckPass, ""
		}
		d := depth()
		if d >= capacity {
			return CheckFail, fmt.Sprintf("queue full: %d/%d events", d, capacity)
		}
		if ratio := float64(d) / float64(capacity); ratio >= warnAt {
			return CheckWarn, fmt.Sprintf("queue at %.0f%% capacity (%d/%d)", ratio*100, d, capacity)
		}
		return CheckPass, ""
	}
}

// MemoryPressure compares the heap in use against a soft limit in MiB.
// Crossing the limit warns, crossing twice the limit fails. A zero
// limit disables the check.
func MemoryPressure(softLimitMB uint64) CheckFunc {
	return func(ctx context.Context) (CheckStatus, string) {
		if softLimitMB == 0 {
			return CheckPass, ""
		}
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		usedMB := stats.HeapAlloc / (1 << 20)

		switch {
		case usedMB >= softLimitMB*2:
			return CheckFail, fmt.Sprintf("heap %d MiB is over twice the soft limit of %d MiB", usedMB, softLimitMB)
		case usedMB >= softLimitMB:
			return CheckWarn, fmt.Sprintf("heap %d MiB exceeds the soft limit of %d MiB", usedMB, softLimitMB)
		}
		return CheckPass, ""
	}
}
