package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/beaconkit/beacon/internal/constants"
	"github.com/beaconkit/beacon/internal/health"
)

// healthHandler serves the condensed liveness view. Degraded still
// answers 200 so load balancers keep routing; only unhealthy (or a
// missing snapshot) turns into 503.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "health_check")
	defer span.End()

	type healthResponse struct {
		Status      health.State `json:"status"`
		Version     string       `json:"version"`
		Environment string       `json:"environment"`
		Uptime      string       `json:"uptime"`
		Timestamp   time.Time    `json:"timestamp"`
	}

	resp := healthResponse{
		Version:     s.config.Version,
		Environment: s.config.Environment,
		Uptime:      time.Since(s.startTime).String(),
		Timestamp:   time.Now().UTC(),
	}

	code := http.StatusOK
	status, ok := s.monitor.Latest()
	switch {
	case !ok:
		resp.Status = "unknown"
		code = http.StatusServiceUnavailable
	case status.Overall == health.StateUnhealthy:
		resp.Status = status.Overall
		code = http.StatusServiceUnavailable
	default:
		resp.Status = status.Overall
	}

	s.sendJSONResponse(w, code, resp)

	s.logger.Debug("Health check completed",
		zap.String("path", r.URL.Path),
		zap.String("remote_addr", r.RemoteAddr),
	)
}

// readinessHandler reports whether the agent has produced a snapshot and
// is not unhealthy.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "readiness_check")
	defer span.End()

	status, ok := s.monitor.Latest()
	ready := ok && status.Overall != health.StateUnhealthy

	if ready {
		s.sendJSONResponse(w, http.StatusOK, map[string]string{"status": "ready"})
	} else {
		s.sendJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}

	s.logger.Debug("Readiness check completed",
		zap.String("path", r.URL.Path),
		zap.Bool("ready", ready),
	)
}

// statusHandler serves the full snapshot with per-check results plus the
// agent's own vitals.
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "status")
	defer span.End()

	status, ok := s.monitor.Latest()
	if !ok {
		s.sendErrorResponse(w, http.StatusServiceUnavailable, "no health snapshot available yet")
		return
	}

	resp := struct {
		health.Status
		SessionID     string `json:"session_id"`
		Uptime        string `json:"uptime"`
		QueueDepth    int    `json:"queue_depth"`
		QueueCapacity int    `json:"queue_capacity"`
		TrackedErrors int    `json:"tracked_errors"`
	}{
		Status:        status,
		SessionID:     s.tel.SessionID(),
		Uptime:        time.Since(s.startTime).String(),
		QueueDepth:    s.tel.QueueDepth(),
		QueueCapacity: s.tel.QueueCapacity(),
		TrackedErrors: s.watcher.Len(),
	}
	s.sendJSONResponse(w, http.StatusOK, resp)
}

// checkHandler runs a full evaluation cycle on demand. POST only, so a
// stray crawler cannot trigger active probes.
func (s *Server) checkHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != constants.MethodPOST {
		s.sendMethodNotAllowedResponse(w, []string{constants.MethodPOST}, r.Method)
		return
	}

	var status health.Status
	err := s.timer.Measure(r.Context(), "on_demand_health_check", func(ctx context.Context) error {
		var err error
		status, err = s.monitor.Check(ctx)
		return err
	})
	if err != nil {
		if errors.Is(err, health.ErrNotRunning) {
			s.sendErrorResponseWithCode(w, http.StatusServiceUnavailable,
				constants.ErrorCodeNotRunning, "health monitor is not running")
			return
		}
		s.sendErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.sendJSONResponse(w, http.StatusOK, status)

	s.logger.Debug("On-demand health check completed",
		zap.String("status", string(status.Overall)),
		zap.String("remote_addr", r.RemoteAddr),
	)
}

// errorsHandler exposes the deduplicated error table.
func (s *Server) errorsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != constants.MethodGET {
		s.sendMethodNotAllowedResponse(w, []string{constants.MethodGET}, r.Method)
		return
	}

	snapshot := s.watcher.Snapshot()
	s.sendJSONResponse(w, http.StatusOK, map[string]any{
		"errors": snapshot,
		"count":  len(snapshot),
	})
}

// docsHandler describes the admin surface at the root path.
func (s *Server) docsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	_, span := s.tracer.StartSpan(r.Context(), "documentation")
	defer span.End()

	type endpointInfo struct {
		Method      string `json:"method"`
		Path        string `json:"path"`
		Description string `json:"description,omitempty"`
	}

	doc := struct {
		Message     string         `json:"message"`
		Version     string         `json:"version"`
		Environment string         `json:"environment"`
		SessionID   string         `json:"session_id"`
		Endpoints   []endpointInfo `json:"endpoints"`
		Metrics     string         `json:"metrics"`
	}{
		Message:     "Beacon Observability Agent",
		Version:     s.config.Version,
		Environment: s.config.Environment,
		SessionID:   s.tel.SessionID(),
		Endpoints: []endpointInfo{
			{Method: constants.MethodGET, Path: constants.PathHealth, Description: "condensed health state"},
			{Method: constants.MethodGET, Path: constants.PathReady, Description: "readiness probe"},
			{Method: constants.MethodGET, Path: constants.PathStatus, Description: "full snapshot with per-check results"},
			{Method: constants.MethodPOST, Path: constants.PathCheck, Description: "run all checks now"},
			{Method: constants.MethodGET, Path: constants.PathErrors, Description: "deduplicated captured errors"},
		},
		Metrics: s.config.GetMetricsAddress() + s.config.Observability.Metrics.Path,
	}

	s.sendJSONResponse(w, http.StatusOK, doc)
}
