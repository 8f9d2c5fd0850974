package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/beaconkit/beacon/internal/config"
	"github.com/beaconkit/beacon/internal/constants"
	"github.com/beaconkit/beacon/internal/errwatch"
	"github.com/beaconkit/beacon/internal/health"
	"github.com/beaconkit/beacon/internal/hotreload"
	"github.com/beaconkit/beacon/internal/observability"
	"github.com/beaconkit/beacon/internal/perf"
	"github.com/beaconkit/beacon/internal/server"
	"github.com/beaconkit/beacon/internal/store"
	"github.com/beaconkit/beacon/internal/telemetry"
	"github.com/beaconkit/beacon/internal/transport"
)

func main() {
	// Parse CLI flags
	configFile := pflag.String("config", "", "Path to configuration file (YAML or JSON)")
	host := pflag.String("host", "localhost", "Host to bind the admin server to")
	port := pflag.String("port", "8080", "Port for the admin server")
	metricsPort := pflag.String("metrics-port", "9090", "Port for the Prometheus metrics server")

	// Identity
	appVersion := pflag.String("app-version", "dev", "Version reported in telemetry and health responses")
	environment := pflag.String("environment", "development", "Deployment environment name")

	// Collector
	collectorURL := pflag.String("collector-url", "", "Telemetry collector endpoint URL (empty disables delivery)")
	collectorAPIKey := pflag.String("collector-api-key", "", "API key sent with collector requests")

	// Local state
	stateDir := pflag.String("state-dir", "data", "Directory for the durable event spool")

	// Logging
	logLevel := pflag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := pflag.String("log-format", "json", "Log format: json or console")

	shutdownTimeout := pflag.Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")

	// Hot reload flags
	hotReload := pflag.Bool("hot-reload", true, "Reload configuration when the config file changes")
	hotReloadDebounce := pflag.Duration("hot-reload-debounce", 500*time.Millisecond, "Debounce time for hot reload events")

	// TLS flags
	tlsEnabled := pflag.Bool("tls-enabled", false, "Serve the admin API over TLS")
	tlsCertFile := pflag.String("tls-cert-file", "", "Path to TLS certificate file")
	tlsKeyFile := pflag.String("tls-key-file", "", "Path to TLS private key file")

	pflag.Usage = printUsage
	if err := pflag.CommandLine.Parse(os.Args[1:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	// Create CLI flags struct for configuration loading
	cliFlags := &config.CLIFlags{
		Host:              host,
		Port:              port,
		MetricsPort:       metricsPort,
		Version:           appVersion,
		Environment:       environment,
		CollectorURL:      collectorURL,
		CollectorAPIKey:   collectorAPIKey,
		StateDir:          stateDir,
		LogLevel:          logLevel,
		LogFormat:         logFormat,
		ShutdownTimeout:   shutdownTimeout,
		HotReload:         hotReload,
		HotReloadDebounce: hotReloadDebounce,
		TLSEnabled:        tlsEnabled,
		TLSCertFile:       tlsCertFile,
		TLSKeyFile:        tlsKeyFile,
	}

	// Load configuration with precedence (CLI > Env > File > Defaults)
	cfg, err := config.LoadConfig(*configFile, cliFlags)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Observability comes up first so everything after it logs through zap.
	logger, err := observability.NewLogger(cfg.Observability.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	metrics := observability.NewMetrics()
	if err := metrics.Register(); err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	tracer, err := observability.NewTracer(cfg.Observability.Tracing, cfg.Version, cfg.Environment)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}

	// Durable spool for events that exhaust their delivery retries
	spool, err := store.NewFile(cfg.Store.Dir, cfg.Store.MaxBytes)
	if err != nil {
		logger.Fatal("Failed to open event spool", zap.String("dir", cfg.Store.Dir), zap.Error(err))
	}

	var sender telemetry.Sender
	if cfg.Collector.URL != "" {
		httpSender, err := transport.NewHTTP(cfg.Collector, logger)
		if err != nil {
			logger.Fatal("Failed to create collector transport", zap.Error(err))
		}
		sender = httpSender
	} else {
		logger.Warn("No collector URL configured, events will be spooled locally only")
		sender = transport.Discard{}
	}

	tel := telemetry.New(cfg.Telemetry, cfg.Version, cfg.Environment, sender, spool, logger, metrics)
	if err := tel.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start telemetry pipeline", zap.Error(err))
	}

	watcher := errwatch.New(cfg.Errors, tel, logger, metrics)
	timer := perf.New(tel, tracer, metrics)

	monitor := health.New(cfg.Health, cfg.Version, cfg.Environment, logger, metrics, tel)
	checks := map[string]health.CheckFunc{
		"spool_dir":   health.DiskWritable(cfg.Store.Dir),
		"event_queue": health.QueuePressure(tel.QueueDepth, tel.QueueCapacity(), cfg.Health.QueueWarnRatio),
		"memory":      health.MemoryPressure(cfg.Health.MemorySoftMB),
	}
	if cfg.Collector.URL != "" {
		checks["collector"] = health.Reachable(cfg.Collector.URL, nil)
	}
	for name, check := range checks {
		if err := monitor.Register(name, check); err != nil {
			logger.Fatal("Failed to register health check", zap.String("check", name), zap.Error(err))
		}
	}
	if err := monitor.Start(); err != nil {
		logger.Fatal("Failed to start health monitor", zap.Error(err))
	}

	srv := server.New(cfg, monitor, watcher, tel, timer, logger, metrics, tracer)
	if err := srv.Start(); err != nil {
		logger.Fatal("Failed to start admin server", zap.Error(err))
	}

	// Initialize hot reload if enabled. Without a config file there is
	// nothing to watch.
	var hotReloadManager *hotreload.Manager
	if cfg.HotReload.Enabled && *configFile != "" {
		hotReloadManager, err = hotreload.NewManager()
		if err != nil {
			logger.Fatal("Failed to create hot reload manager", zap.Error(err))
		}

		hotReloadManager.SetDebounceTime(cfg.HotReload.Debounce)

		if err := hotReloadManager.AddWatch(*configFile); err != nil {
			logger.Fatal("Failed to watch config file", zap.Error(err))
		}

		reloader := &configReloader{
			path:    *configFile,
			flags:   cliFlags,
			logger:  logger,
			monitor: monitor,
			tel:     tel,
		}
		if err := hotReloadManager.RegisterReloadable(reloader); err != nil {
			logger.Fatal("Failed to register config reloader", zap.Error(err))
		}

		// Record applied reloads in the session's own event stream.
		if err := hotReloadManager.AddListener("telemetry", func(ctx context.Context, event hotreload.Event) error {
			tel.Info(constants.EventConfigReloaded, map[string]string{"path": event.Path})
			return nil
		}); err != nil {
			logger.Fatal("Failed to register reload listener", zap.Error(err))
		}

		if err := hotReloadManager.Start(); err != nil {
			logger.Fatal("Failed to start hot reload", zap.Error(err))
		}

		logger.Info("Hot reload enabled", zap.String("config", *configFile))
	}

	logger.Info("Beacon agent started",
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Environment),
		zap.String("address", cfg.GetServerAddress()),
		zap.String("session_id", tel.SessionID()),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop intake first, then drain: the server stops accepting requests,
	// background producers stop, and the telemetry pipeline flushes last.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	if hotReloadManager != nil {
		if err := hotReloadManager.Shutdown(shutdownCtx); err != nil {
			logger.Error("Hot reload shutdown failed", zap.Error(err))
		}
	}
	monitor.Stop()
	watcher.Stop()
	if err := tel.Stop(shutdownCtx); err != nil {
		logger.Error("Telemetry shutdown failed", zap.Error(err))
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Tracer shutdown failed", zap.Error(err))
	}
	_ = logger.Sync()
}

// configReloader re-reads the configuration file on change and applies the
// settings that can take effect without a restart.
type configReloader struct {
	path    string
	flags   *config.CLIFlags
	logger  *observability.Logger
	monitor *health.Monitor
	tel     *telemetry.Logger
}

func (r *configReloader) Name() string { return "config" }

func (r *configReloader) Reload(ctx context.Context) error {
	cfg, err := config.LoadConfig(r.path, r.flags)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	r.monitor.SetInterval(cfg.Health.Interval)
	r.tel.SetFlushInterval(cfg.Telemetry.FlushInterval)

	r.logger.Info("Configuration reloaded",
		zap.Duration("health_interval", cfg.Health.Interval),
		zap.Duration("flush_interval", cfg.Telemetry.FlushInterval),
	)
	return nil
}

// printUsage prints the usage information
func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nBeacon is a standalone observability agent. It runs periodic health\n")
	fmt.Fprintf(os.Stderr, "checks, captures and deduplicates application errors, measures named\n")
	fmt.Fprintf(os.Stderr, "operations, and ships everything to a collector endpoint with local\n")
	fmt.Fprintf(os.Stderr, "spooling when delivery fails.\n")
	fmt.Fprintf(os.Stderr, "\nFlags:\n")
	fmt.Fprint(os.Stderr, pflag.CommandLine.FlagUsages())
	fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
	fmt.Fprintf(os.Stderr, "  BEACON_HOST, BEACON_PORT, BEACON_METRICS_PORT\n")
	fmt.Fprintf(os.Stderr, "  BEACON_VERSION, BEACON_ENVIRONMENT\n")
	fmt.Fprintf(os.Stderr, "  BEACON_COLLECTOR_URL, BEACON_COLLECTOR_API_KEY, BEACON_STATE_DIR\n")
	fmt.Fprintf(os.Stderr, "  BEACON_LOG_LEVEL, BEACON_LOG_FORMAT, BEACON_SHUTDOWN_TIMEOUT\n")
	fmt.Fprintf(os.Stderr, "  BEACON_HOT_RELOAD, BEACON_HOT_RELOAD_DEBOUNCE\n")
	fmt.Fprintf(os.Stderr, "  BEACON_TLS_ENABLED, BEACON_TLS_CERT_FILE, BEACON_TLS_KEY_FILE\n")
	fmt.Fprintf(os.Stderr, "\nExample usage:\n")
	fmt.Fprintf(os.Stderr, "  %s --config ./beacon.yaml\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s --collector-url https://collector.example.com/v1/events --environment production\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  BEACON_PORT=8081 %s\n", os.Args[0])
}
