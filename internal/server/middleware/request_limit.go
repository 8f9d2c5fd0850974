package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/beaconkit/beacon/internal/constants"
)

// RequestSizeLimitMiddleware creates a middleware that limits request body size.
// The body is also capped with MaxBytesReader so chunked requests without a
// Content-Length cannot slip past the check.
func RequestSizeLimitMiddleware(maxRequestSize int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxRequestSize > 0 {
				if r.ContentLength > maxRequestSize {
					w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
					w.WriteHeader(http.StatusRequestEntityTooLarge)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": fmt.Sprintf("Request body too large, max size: %d bytes", maxRequestSize),
					})
					return
				}
				r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
			}
			next.ServeHTTP(w, r)
		})
	}
}
