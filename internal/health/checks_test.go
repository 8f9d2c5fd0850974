package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReachable(t *testing.T) {
	tests := []struct {
		name string
		code int
		want CheckStatus
	}{
		{"ok", http.StatusOK, CheckPass},
		{"no content", http.StatusNoContent, CheckPass},
		{"unauthorized warns", http.StatusUnauthorized, CheckWarn},
		{"not found warns", http.StatusNotFound, CheckWarn},
		{"server error fails", http.StatusServiceUnavailable, CheckFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			check := Reachable(srv.URL, srv.Client())
			status, _ := check(context.Background())
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestReachable_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	check := Reachable(url, nil)
	status, message := check(context.Background())
	assert.Equal(t, CheckFail, status)
	assert.NotEmpty(t, message)
}

func TestDiskWritable(t *testing.T) {
	check := DiskWritable(t.TempDir())
	status, message := check(context.Background())
	assert.Equal(t, CheckPass, status)
	assert.Empty(t, message)
}

func TestDiskWritable_MissingDirectory(t *testing.T) {
	check := DiskWritable(filepath.Join(t.TempDir(), "does-not-exist"))
	status, message := check(context.Background())
	assert.Equal(t, CheckFail, status)
	assert.Contains(t, message, "cannot create file")
}

func TestQueuePressure(t *testing.T) {
	tests := []struct {
		depth    int
		capacity int
		warnAt   float64
		want     CheckStatus
	}{
		{10, 100, 0.8, CheckPass},
		{79, 100, 0.8, CheckPass},
		{80, 100, 0.8, CheckWarn},
		{99, 100, 0.8, CheckWarn},
		{100, 100, 0.8, CheckFail},
		{120, 100, 0.8, CheckFail},
		{50, 0, 0.8, CheckPass}, // unbounded queue never reports pressure
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tt.depth, tt.capacity), func(t *testing.T) {
			check := QueuePressure(func() int { return tt.depth }, tt.capacity, tt.warnAt)
			status, _ := check(context.Background())
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestMemoryPressure_Disabled(t *testing.T) {
	check := MemoryPressure(0)
	status, _ := check(context.Background())
	assert.Equal(t, CheckPass, status)
}

func TestMemoryPressure_GenerousLimit(t *testing.T) {
	check := MemoryPressure(1 << 20) // a tebibyte
	status, _ := check(context.Background())
	assert.Equal(t, CheckPass, status)
}

func TestMemoryPressure_TightLimit(t *testing.T) {
	// Keep a few MiB live so a 1 MiB soft limit is well past doubled.
	buf := make([]byte, 4<<20)
	for i := range buf {
		buf[i] = byte(i)
	}

	check := MemoryPressure(1)
	status, message := check(context.Background())
	assert.Equal(t, CheckFail, status)
	assert.Contains(t, message, "soft limit")

	runtime.KeepAlive(buf)
}
