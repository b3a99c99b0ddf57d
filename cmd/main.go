package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DariusTFox24/LeagueAssistant/internal"
)

func setupRoutes(mux *http.ServeMux, reconciler *internal.Reconciler, store *internal.DatabaseManager, limiter internal.Limiter, cfg *internal.Config, logger *internal.Logger, metrics *internal.MetricsCollector) {
	lm := internal.NewLoggingMiddleware(logger, metrics)

	mux.HandleFunc("/healthz", lm.Handler(internal.HealthHandler(cfg, logger)))
	mux.HandleFunc("/status", lm.Handler(internal.StatusHandler(reconciler, logger)))
	mux.HandleFunc("/refresh", lm.Handler(internal.RefreshHandler(reconciler, limiter, logger)))
	mux.HandleFunc("/history", lm.Handler(internal.HistoryHandler(store, cfg, logger)))
	mux.HandleFunc("/metrics", lm.Handler(internal.MetricsHandler(metrics, logger)))
}

// nextInterval picks the poll delay the status asks for, keeping the
// current one when the status carries no hint.
func nextInterval(current time.Duration, status *internal.ReconciledStatus) time.Duration {
	if status != nil && status.DesiredInterval > 0 {
		return status.DesiredInterval
	}
	return current
}

// runPollLoop drives the reconciler on an adaptive schedule: the fast
// interval while the player is in a game, the slow one otherwise. The
// first cycle runs immediately so the status endpoint is useful at
// startup.
func runPollLoop(ctx context.Context, reconciler *internal.Reconciler, profiler *internal.Profiler, cfg *internal.Config, logger *internal.Logger) error {
	interval := cfg.ScanInterval

	refresh := func() error {
		cycleCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()

		status, err := profiler.ProfileCycle(cycleCtx, reconciler.Refresh)
		if err != nil {
			return err
		}
		if next := nextInterval(interval, status); next != interval {
			logger.Info("poll_interval_changed").
				Component("scheduler").
				Operation("poll_loop").
				State(status.State).
				Meta("interval", next.String()).
				Log()
			interval = next
		}
		return nil
	}

	// The very first cycle validates credentials and the Riot ID. Bad
	// credentials or an unknown Riot ID abort startup; anything else
	// is left to the failure policy of later cycles. A player already
	// in game at startup gets the fast interval from this cycle on.
	if err := refresh(); err != nil {
		if internal.IsAuthError(err) || internal.IsNotFoundError(err) {
			return err
		}
		logger.Warn("startup_cycle_degraded").
			Component("main").
			Operation("poll_loop").
			Err(err).
			Log()
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			refresh()
			timer.Reset(interval)
		}
	}
}

func main() {
	cfg, err := internal.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := internal.NewLogger(cfg)
	metrics := internal.NewMetricsCollector(logger)
	profiler := internal.NewProfiler(logger)
	profiler.StartPeriodicMemoryLogging()

	cacheManager := internal.NewCacheManager(cfg)
	defer cacheManager.Close()

	rateLimiter := internal.NewRateLimiter(cfg, logger)

	store := internal.NewDatabaseManager(cfg, logger)
	defer store.Close()

	var events *internal.NATSClient
	if cfg.EventsEnabled {
		events, err = internal.NewNATSClient(cfg, logger)
		if err != nil {
			log.Fatalf("Error connecting to NATS: %v", err)
		}
		defer events.Close()
	}

	riotClient := internal.NewRiotAPIClient(cfg, rateLimiter, logger, metrics)

	var publisher internal.Publisher
	if events != nil {
		publisher = events
	}
	reconciler := internal.NewReconciler(cfg, riotClient, cacheManager, store, publisher, logger, metrics)
	defer reconciler.Teardown()

	if events != nil {
		bg := context.Background()
		_, err = events.StartRefreshWorker(func() (*internal.ReconciledStatus, error) {
			ctx, cancel := context.WithTimeout(bg, 60*time.Second)
			defer cancel()
			return reconciler.Refresh(ctx)
		})
		if err != nil {
			log.Fatalf("Error starting refresh worker: %v", err)
		}
	}

	mux := http.NewServeMux()
	setupRoutes(mux, reconciler, store, rateLimiter, cfg, logger, metrics)

	port := cfg.AppPort
	if port == "" {
		port = "8000"
	}
	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server_started").
			Component("main").
			Operation("startup").
			Meta("port", port).
			Meta("region", cfg.Region).
			Meta("riot_id", cfg.GameName+"#"+cfg.TagLine).
			Log()
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	if err := runPollLoop(ctx, reconciler, profiler, cfg, logger); err != nil {
		logger.Error("startup_cycle_failed").
			Component("main").
			Operation("poll_loop").
			Err(err).
			Log()
		server.Close()
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	logger.Info("server_stopped").
		Component("main").
		Operation("shutdown").
		Log()
}
