package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/beaconkit/beacon/internal/constants"
	"github.com/beaconkit/beacon/internal/errwatch"
)

// RecoveryMiddleware creates a middleware that converts handler panics
// into 500 responses and records them in the error watcher
func RecoveryMiddleware(watcher *errwatch.Watcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if watcher != nil {
					watcher.CapturePanic(rec, errwatch.SourceHTTP, map[string]string{
						"path":   r.URL.Path,
						"method": r.Method,
					})
				}
				w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": "internal server error",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
