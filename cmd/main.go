package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/dakheliyah/vms/internal/adapters/backend"
	"github.com/dakheliyah/vms/internal/adapters/cache"
	"github.com/dakheliyah/vms/internal/adapters/http/api"
	"github.com/dakheliyah/vms/internal/adapters/http/swagger"
	"github.com/dakheliyah/vms/internal/adapters/mq/worker"
	app "github.com/dakheliyah/vms/internal/app"
	"github.com/dakheliyah/vms/internal/config"
	"github.com/dakheliyah/vms/internal/domain/dedupe"
	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/pkg/logger"
	"github.com/dakheliyah/vms/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// options holds command line flags.
type options struct {
	configPath string
	addr       string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet("vms", pflag.ContinueOnError)
	fs.StringVarP(&o.configPath, "config", "c", "", "path to a YAML config file (overrides VMS_CONFIG)")
	fs.StringVar(&o.addr, "addr", "", "HTTP listen address (overrides addr from config)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return o, nil
}

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Stderr.WriteString("invalid flags: " + err.Error() + "\n")
		os.Exit(2)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> dotenv -> env)
	cfg, err := config.Load(ctx, flags.configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if flags.addr != "" {
		cfg.Addr = flags.addr
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, closeDeps := newService(ctx, cfg, loggerInstance)
	defer closeDeps()

	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("backend", cfg.BackendBaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "service shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newService builds the backend client, the optional Redis capacity cache
// and the outcome publisher, and wires them into the service. The returned
// func releases what the service does not own.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, func()) {
	client := backend.NewClient(backend.Config{
		BaseURL:     cfg.BackendBaseURL,
		TokenHeader: cfg.TokenHeader,
		Timeout:     cfg.RequestTimeout(),
	}, log.Named("backend"))

	var rdb *redis.Client
	if cfg.CapacityCacheTTLMS > 0 {
		var err error
		rdb, err = cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn(ctx, "redis unavailable; capacity cache disabled", logger.Error(err))
			rdb = nil
		}
	}
	capacity := cache.NewCapacityCache(client, rdb,
		cache.WithTTL(cfg.CapacityCacheTTL()),
		cache.WithLogger(log.Named("cache")))

	var publisher worker.Publisher = worker.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub := worker.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue, log.Named("amqp"))
		if err := amqpPub.Connect(); err != nil {
			log.Warn(ctx, "rabbitmq unavailable; will retry on publish", logger.Error(err))
		}
		publisher = amqpPub
	}

	svc := app.New(client,
		app.WithLogger(log),
		app.WithCapacityCache(capacity),
		app.WithAdmin(client),
		app.WithPublisher(publisher),
		app.WithQueueSize(cfg.OutcomeQueueSize),
		app.WithPublisherWorkers(cfg.PublisherWorkers),
		app.WithMessageTTL(cfg.MessageTTL()),
		app.WithSessionIdleTTL(cfg.SessionIdleTTL()),
		app.WithRequireBlock(cfg.RequireBlock),
		app.WithDefaultEventID(cfg.DefaultEventID),
	)

	return svc, func() {
		if rdb != nil {
			_ = rdb.Close()
		}
	}
}

// newMux registers the docs and the coordinator API.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service) *http.ServeMux {
	opts := []api.Option{api.WithAdmin(svc)}
	if cfg.IdempotencyTTLMS > 0 {
		opts = append(opts, api.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithTTL(cfg.IdempotencyTTL()))))
	}

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(apiDeps{svc}, svc, opts...).Register(ctx, mux)
	return mux
}

// apiDeps adapts the service to the API's dependency bundle.
type apiDeps struct {
	svc *app.Service
}

func (d apiDeps) Open(ctx context.Context, cred model.Credential, eventID int64) (api.Session, error) {
	sess, err := d.svc.Session(ctx, cred, eventID)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (d apiDeps) ActiveEvent(ctx context.Context, cred model.Credential) (model.Event, error) {
	return d.svc.ActiveEvent(ctx, cred)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes the gauges GetStats maintains.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if sessions, ok := stats["sessions"].(int); ok {
		metrics.UpdateActiveSessions(sessions)
	}
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
}
