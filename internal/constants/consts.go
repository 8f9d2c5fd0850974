package constants

import "time"

// Environment variable constants
const (
	EnvHost              = "BEACON_HOST"
	EnvPort              = "BEACON_PORT"
	EnvMetricsPort       = "BEACON_METRICS_PORT"
	EnvReadTimeout       = "BEACON_READ_TIMEOUT"
	EnvWriteTimeout      = "BEACON_WRITE_TIMEOUT"
	EnvIdleTimeout       = "BEACON_IDLE_TIMEOUT"
	EnvShutdownTimeout   = "BEACON_SHUTDOWN_TIMEOUT"
	EnvVersion           = "BEACON_VERSION"
	EnvEnvironment       = "BEACON_ENVIRONMENT"
	EnvCollectorURL      = "BEACON_COLLECTOR_URL"
	EnvCollectorAPIKey   = "BEACON_COLLECTOR_API_KEY"
	EnvStateDir          = "BEACON_STATE_DIR"
	EnvLogLevel          = "BEACON_LOG_LEVEL"
	EnvLogFormat         = "BEACON_LOG_FORMAT"
	EnvHotReload         = "BEACON_HOT_RELOAD"
	EnvHotReloadDebounce = "BEACON_HOT_RELOAD_DEBOUNCE"
	EnvTLSEnabled        = "BEACON_TLS_ENABLED"
	EnvTLSCertFile       = "BEACON_TLS_CERT_FILE"
	EnvTLSKeyFile        = "BEACON_TLS_KEY_FILE"
)

// HTTP method constants
const (
	MethodGET     = "GET"
	MethodPOST    = "POST"
	MethodPUT     = "PUT"
	MethodDELETE  = "DELETE"
	MethodPATCH   = "PATCH"
	MethodOPTIONS = "OPTIONS"
	MethodHEAD    = "HEAD"
)

// HTTP header constants
const (
	HeaderAuthorization  = "Authorization"
	HeaderContentType    = "Content-Type"
	HeaderAccept         = "Accept"
	HeaderXRequestedWith = "X-Requested-With"
	HeaderOrigin         = "Origin"
	HeaderXForwardedFor  = "X-Forwarded-For"
	HeaderXRealIP        = "X-Real-IP"
	HeaderXAPIKey        = "X-API-Key"
)

// Content type constants
const (
	ContentTypeJSON = "application/json"
)

// CORS headers
const (
	HeaderAccessControlAllowOrigin      = "Access-Control-Allow-Origin"
	HeaderAccessControlAllowMethods     = "Access-Control-Allow-Methods"
	HeaderAccessControlAllowHeaders     = "Access-Control-Allow-Headers"
	HeaderAccessControlAllowCredentials = "Access-Control-Allow-Credentials"
	HeaderAccessControlMaxAge           = "Access-Control-Max-Age"
)

// Admin endpoint paths
const (
	PathHealth  = "/health"
	PathReady   = "/ready"
	PathStatus  = "/status"
	PathCheck   = "/check"
	PathErrors  = "/errors"
	PathMetrics = "/metrics"
)

// Well-known event context keys. Producers may add their own keys; these are
// the ones the collector indexes.
const (
	ContextKeySession   = "session_id"
	ContextKeyPage      = "page"
	ContextKeySource    = "source"
	ContextKeyTask      = "task"
	ContextKeyComponent = "component"
	ContextKeySucceeded = "succeeded"
)

// Names of events the core emits about itself
const (
	EventConfigReloaded = "config_reloaded"
	EventHealthCycle    = "health_cycle"
)

// Spool file name inside the state directory
const (
	SpoolFileName = "events.jsonl"
)

// Server timeout constants (internal use only - not user configurable)
const (
	// ServerReadTimeout is the read timeout for the HTTP server
	ServerReadTimeout = 15 * time.Second
	// ServerWriteTimeout is the write timeout for the HTTP server
	ServerWriteTimeout = 15 * time.Second
	// ServerIdleTimeout is the idle timeout for the HTTP server
	ServerIdleTimeout = 60 * time.Second
	// ServerMaxRequestSize is the maximum request body size (1MB)
	ServerMaxRequestSize = 1 * 1024 * 1024
	// ServerShutdownTimeout is the graceful shutdown timeout
	ServerShutdownTimeout = 30 * time.Second
)

// Error code constants
const (
	ErrorCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrorCodeNotRunning       = "NOT_RUNNING"
)
