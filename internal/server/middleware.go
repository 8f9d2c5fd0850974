package server

import (
	"net/http"

	"github.com/beaconkit/beacon/internal/server/middleware"
)

// ApplyMiddleware applies the complete middleware chain to the handler
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Apply middleware chain in reverse order

	// Recovery middleware (innermost, closest to handlers)
	handler = middleware.RecoveryMiddleware(s.watcher)(handler)

	// Logging middleware
	handler = middleware.LoggingMiddleware(s.logger.Logger)(handler)

	// Metrics middleware
	handler = middleware.MetricsMiddleware(s.metrics)(handler)

	// Request size limit middleware
	handler = middleware.RequestSizeLimitMiddleware(s.config.Server.MaxRequestSize)(handler)

	// CORS middleware
	if s.config.Server.CORS.Enabled {
		corsMiddleware := middleware.NewCORSMiddleware(
			s.config.Server.CORS.AllowedOrigins,
			s.config.Server.CORS.AllowedMethods,
			s.config.Server.CORS.AllowedHeaders,
			s.config.Server.CORS.AllowCredentials,
			s.config.Server.CORS.MaxAge,
		)
		handler = corsMiddleware.Handler(handler)
	}

	return handler
}
