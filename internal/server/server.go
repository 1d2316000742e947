// Package server hosts the fuzzy clock as a long-running HTTP service.
// Run owns signal handling, config loading, observability init, the display
// registry's event loop, health checks and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aelexs/fuzzyclock/internal/alarm"
	"github.com/aelexs/fuzzyclock/internal/config"
	"github.com/aelexs/fuzzyclock/internal/display"
	"github.com/aelexs/fuzzyclock/internal/domain"
	"github.com/aelexs/fuzzyclock/internal/observability"
	"github.com/aelexs/fuzzyclock/internal/prefs"
	"github.com/aelexs/fuzzyclock/internal/redis"
	"github.com/aelexs/fuzzyclock/internal/scheduler"
	"github.com/aelexs/fuzzyclock/internal/text"
)

// Params configures the service's lifecycle runner.
type Params struct {
	// Name identifies the service in logs and telemetry. Empty uses the
	// configured OTEL service name.
	Name    string
	Version string
}

// Run executes the full service lifecycle: signal handling, config loading,
// observability initialization, registry startup, HTTP server with health
// checks, and graceful shutdown. If ln is non-nil, it is used instead of
// creating a new listener from config (enables port-0 testing).
func Run(ctx context.Context, p Params, ln net.Listener) error {
	// Signal-based cancellation: ctx.Done() closes on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	name := p.Name
	if name == "" {
		name = cfg.OTEL.ServiceName
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: name,
		Environment: cfg.Environment,
	})

	// --- Startup order: telemetry -> preference store -> registry -> HTTP server ---

	telemetry, err := observability.InitTelemetry(ctx, observability.TelemetryConfig{
		ServiceName:    name,
		ServiceVersion: p.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}

	store, closeStore, err := openPreferences(ctx, cfg, logger)
	if err != nil {
		_ = telemetry.Shutdown(context.Background())
		return err
	}

	// Parsed values were checked by config.Load.
	loc, _ := cfg.Clock.Location()
	orientation, _ := cfg.Clock.OrientationValue()
	ids, _ := cfg.Clock.InstanceIDs()

	g, ctx := errgroup.WithContext(ctx)

	events := make(chan scheduler.Event, domain.EventQueueSize)
	alarms := alarm.NewService(alarm.Config{
		Clock: domain.RealClock{},
		Fire: func(id domain.InstanceID) {
			select {
			case events <- scheduler.TickFor(id):
			case <-ctx.Done():
			}
		},
		Logger: logger,
	})
	renders := display.NewMemorySink(domain.RealClock{}, text.English)
	reg := scheduler.NewRegistry(scheduler.RegistryConfig{
		Clock:       domain.RealClock{},
		Location:    loc,
		Orientation: orientation,
		Formats:     text.LocaleFormat{Getenv: os.Getenv},
		Alarms:      alarms,
		Sink:        display.Tee{display.NewLogSink(logger, text.English), renders},
		Prefs:       store,
		Logger:      logger,
	})
	if err := registerInstances(ctx, cfg, reg, store, ids); err != nil {
		logger.WarnContext(ctx, "startup instances not fully registered", slog.String("error", err.Error()))
	}

	// Health check shutdown coordination via atomic flag.
	var shuttingDown atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if shuttingDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"shutting_down","service":%q}`, name)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":%q}`, name)
	})
	NewHandler(reg, renders).Register(mux)

	// Bind listener (use injected listener or create from config).
	if ln == nil {
		ln, err = (&net.ListenConfig{}).Listen(ctx, "tcp", fmt.Sprintf(":%d", cfg.HTTP.Port))
		if err != nil {
			alarms.Stop()
			_ = closeStore()
			_ = telemetry.Shutdown(context.Background())
			return fmt.Errorf("listen: %w", err)
		}
	}

	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Goroutine 1: Serve HTTP
	g.Go(func() error {
		logger.Info("starting HTTP server",
			slog.String("addr", ln.Addr().String()),
			slog.String("environment", cfg.Environment),
			slog.Int("instances", len(reg.Instances())),
		)
		if serveErr := server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	})

	// Goroutine 2: Registry event loop. Wake-ups arrive here as ticks.
	g.Go(func() error {
		return reg.Run(ctx, events)
	})

	// Goroutine 3: Shutdown trigger. Waits for context cancellation, then drains
	// in reverse startup order: HTTP server -> wake-ups -> store -> telemetry.
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("received shutdown signal, starting graceful shutdown")

		// 1. Mark shutting down; health checks return 503
		shuttingDown.Store(true)

		// 2. Drain delay to let the load balancer propagate endpoint removal
		time.Sleep(domain.ShutdownDrainDelay)

		// 3. Drain HTTP server
		httpCtx, httpCancel := context.WithTimeout(context.Background(), domain.ShutdownHTTPTimeout)
		defer httpCancel()
		if shutdownErr := server.Shutdown(httpCtx); shutdownErr != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", shutdownErr.Error()))
		}

		// 4. Cancel pending wake-ups and wait for in-flight fires
		alarms.Stop()

		// 5. Close the preference store
		if closeErr := closeStore(); closeErr != nil {
			logger.Error("failed to close preference store", slog.String("error", closeErr.Error()))
		}

		// 6. Flush OTEL
		otelCtx, otelCancel := context.WithTimeout(context.Background(), domain.ShutdownOTELTimeout)
		defer otelCancel()
		if shutdownErr := telemetry.Shutdown(otelCtx); shutdownErr != nil {
			logger.Error("failed to shutdown telemetry", slog.String("error", shutdownErr.Error()))
		}

		logger.Info("shutdown complete")
		return nil
	})

	return g.Wait()
}

// openPreferences returns the Redis store when an address is configured and
// the in-memory store otherwise. The returned close func is never nil.
func openPreferences(ctx context.Context, cfg *config.Config, logger *slog.Logger) (scheduler.PreferenceStore, func() error, error) {
	if cfg.Redis.Addr == "" {
		logger.Info("no redis address configured, preferences kept in memory")
		return prefs.NewMemoryStore(), func() error { return nil }, nil
	}

	client := redis.NewClient(redis.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.Timeout,
		ReadTimeout:  cfg.Redis.Timeout,
		WriteTimeout: cfg.Redis.Timeout,
	})
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect preference store: %w", err)
	}
	logger.Info("preference store connected", slog.String("redis_addr", cfg.Redis.Addr))
	return prefs.NewRedisStore(client.RDB), client.Close, nil
}

// registerInstances seeds the configured displays. Instances with stored
// preferences keep them; the rest take the configured policy for both
// orientations.
func registerInstances(ctx context.Context, cfg *config.Config, reg *scheduler.Registry, store scheduler.PreferenceStore, ids []domain.InstanceID) error {
	kind, _ := cfg.Clock.Kind()
	format, _ := cfg.Clock.FormatPreference()

	var errs []error
	for _, id := range ids {
		p, err := store.Get(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if p == (scheduler.Preferences{}) {
			p = scheduler.Preferences{Portrait: kind, Landscape: kind, HourFormat: format}
			if err := store.Put(ctx, id, p); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		if err := reg.Handle(ctx, scheduler.Added(id)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
