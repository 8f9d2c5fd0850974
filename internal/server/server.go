// Package server exposes the agent's admin HTTP surface: health probes,
// the full status snapshot, on-demand checks, the captured-error table,
// and a separate Prometheus metrics listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/beaconkit/beacon/internal/config"
	"github.com/beaconkit/beacon/internal/constants"
	"github.com/beaconkit/beacon/internal/errwatch"
	"github.com/beaconkit/beacon/internal/health"
	"github.com/beaconkit/beacon/internal/observability"
	"github.com/beaconkit/beacon/internal/perf"
	"github.com/beaconkit/beacon/internal/telemetry"
)

type Server struct {
	config  *config.Config
	monitor *health.Monitor
	watcher *errwatch.Watcher
	tel     *telemetry.Logger
	timer   *perf.Timer

	// Observability
	logger    *observability.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	startTime time.Time

	server        *http.Server
	metricsServer *http.Server
}

func New(cfg *config.Config, monitor *health.Monitor, watcher *errwatch.Watcher, tel *telemetry.Logger, timer *perf.Timer, logger *observability.Logger, metrics *observability.Metrics, tracer *observability.Tracer) *Server {
	return &Server{
		config:    cfg,
		monitor:   monitor,
		watcher:   watcher,
		tel:       tel,
		timer:     timer,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		startTime: time.Now(),
	}
}

// Handler assembles the admin mux with the full middleware chain. Split
// out from Start so tests can drive it without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(constants.PathHealth, s.healthHandler)
	mux.HandleFunc(constants.PathReady, s.readinessHandler)
	mux.HandleFunc(constants.PathStatus, s.statusHandler)
	mux.HandleFunc(constants.PathCheck, s.checkHandler)
	mux.HandleFunc(constants.PathErrors, s.errorsHandler)
	mux.HandleFunc("/", s.docsHandler)
	return s.applyMiddleware(mux)
}

// Start brings up the admin and metrics listeners and returns. Shutdown
// is driven separately so the caller controls teardown ordering.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:           s.config.GetServerAddress(),
		Handler:        s.Handler(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	s.logger.Info("Starting admin server",
		zap.String("host", s.config.Server.Host),
		zap.String("port", s.config.Server.Port),
		zap.Bool("tls", s.config.TLS.Enabled),
	)

	go func() {
		var err error
		if s.config.TLS.Enabled {
			err = s.server.ListenAndServeTLS(s.config.TLS.CertFile, s.config.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Admin server failed", zap.Error(err))
			s.watcher.Handle(err, errwatch.SourceRuntime, map[string]string{
				constants.ContextKeyComponent: "admin_server",
			})
		}
	}()

	if s.config.Observability.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(s.config.Observability.Metrics.Path, s.metrics.Handler())
		s.metricsServer = &http.Server{
			Addr:              s.config.GetMetricsAddress(),
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		s.logger.Info("Starting metrics server",
			zap.String("port", s.config.Server.MetricsPort),
			zap.String("path", s.config.Observability.Metrics.Path),
		)
		go func() {
			if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	return nil
}

// Shutdown stops both listeners in parallel and returns the first error
// encountered.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down servers...")

	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	if s.metricsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.logger.Info("Shutting down metrics server...")
			if err := s.metricsServer.Shutdown(ctx); err != nil {
				s.logger.Error("Failed to shutdown metrics server", zap.Error(err))
				errChan <- fmt.Errorf("metrics server shutdown: %w", err)
			}
		}()
	}

	if s.server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.logger.Info("Shutting down admin server...")
			if err := s.server.Shutdown(ctx); err != nil {
				s.logger.Error("Failed to shutdown admin server", zap.Error(err))
				errChan <- fmt.Errorf("admin server shutdown: %w", err)
			}
		}()
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}
