// magpie discovery-service
//
// Scheduled scholarship discovery. For every distinct profile location it
// asks the configured content source for scholarships and files the
// candidates into the moderation queue.
//   - POST /discovery/run  cron-secret guarded trigger
//   - in-process cron schedule (DISCOVERY_CRON, "off" to disable)
//
// A Redis lock keeps the HTTP trigger and the schedule from overlapping.
// Run reports are optionally archived to MongoDB or MinIO.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/app"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/archive"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/config"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/discovery"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/httpapi"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/scheduler"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/pkg/logger"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[discovery-service] config error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "discovery-service"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "[discovery-service] logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Storage ─────────────────────────────────────────────────────────────
	storage, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("storage", zap.Error(err))
	}
	defer storage.Close()

	// ── Archive ─────────────────────────────────────────────────────────────
	archiver, closeArchive, err := archive.New(ctx, cfg.Archive)
	if err != nil {
		log.Fatal("archive", zap.Error(err))
	}
	defer func() { _ = closeArchive(context.Background()) }()
	if archiver != nil {
		log.Info("run reports archived", zap.String("backend", cfg.Archive.Backend))
	}

	// ── Orchestrator ────────────────────────────────────────────────────────
	var invoker discovery.Invoker
	switch cfg.Discovery.Mode {
	case "rss":
		invoker = discovery.NewRSSInvoker(cfg.Discovery.Feeds, cfg.Discovery.InvokeTimeout)
	default:
		invoker = discovery.NewHTTPInvoker(cfg.Discovery.FunctionURL, cfg.Discovery.FunctionKey, cfg.Discovery.InvokeTimeout)
	}

	var locker discovery.Locker = &discovery.LocalLocker{}
	if storage.Redis != nil {
		locker = discovery.NewRedisLocker(storage.Redis)
	}

	redFlags := cfg.Discovery.RedFlags
	if len(redFlags) == 0 {
		redFlags = discovery.DefaultRedFlags
	}
	orch := discovery.NewOrchestrator(storage.Store, invoker, storage.Store, discovery.Options{
		Budget:        cfg.Discovery.Budget,
		Workers:       cfg.Discovery.Workers,
		IngestTimeout: cfg.Discovery.IngestTimeout,
		Locker:        locker,
		Archiver:      archiver,
		RedFlags:      redFlags,
		Logger:        log,
	})

	// ── Scheduler ───────────────────────────────────────────────────────────
	sched := scheduler.New(orch, cfg.Discovery.Cron, log)
	if err := sched.Start(ctx); err != nil {
		log.Fatal("scheduler", zap.Error(err))
	}

	// ── HTTP server ─────────────────────────────────────────────────────────
	if cfg.Auth.CronSecret == "" {
		log.Warn("CRON_SECRET is not set; POST /discovery/run will refuse every call")
	}
	router := httpapi.NewDiscoveryRouter(
		httpapi.NewDiscoveryHandler(orch, cfg.Auth.CronSecret, log),
		storage.Health,
		log,
	)
	// A triggered run answers only after the batch, which the budget bounds.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.DiscoveryPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Discovery.Budget + cfg.Discovery.IngestTimeout + 30*time.Second,
	}

	go func() {
		log.Info("listening", zap.String("version", version), zap.String("port", cfg.Server.DiscoveryPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ───────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel() // an in-flight run stops launching locations and reports partial
	sched.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	log.Info("stopped")
}
