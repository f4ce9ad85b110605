// magpie scholarship-service
//
// Moderation queue and student search.
//   - GET  /api/admin/pending-scholarships             list queue
//   - POST /api/admin/pending-scholarships/:id/approve publish
//   - POST /api/admin/pending-scholarships/:id/reject  withdraw
//   - GET  /api/scholarships/search                    filtered, ranked search
//
// The moderation RPCs are also served over gRPC. Decisions are published to
// Redis on the scholarship.moderated channel.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/adminauth"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/app"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/config"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/grpcserver"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/httpapi"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/moderation"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/ranking"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/search"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/pkg/logger"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[scholarship-service] config error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "scholarship-service"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "[scholarship-service] logger: %v\n", err)
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

	// ── Moderation ──────────────────────────────────────────────────────────
	verifier := adminauth.NewTokenVerifier(cfg.Auth.JWTSecret)
	gate := adminauth.New(adminauth.Config{
		AutomationSecret: cfg.Auth.AutomationSecret,
		Admins:           cfg.Auth.AdminIDs,
		Verifier:         verifier,
	})
	if gate.OpenAllowList() {
		log.Warn("ADMIN_USER_IDS is empty; every authenticated identity may moderate")
	}

	var pub moderation.Publisher
	if storage.Redis != nil {
		pub = moderation.NewRedisPublisher(storage.Redis)
	}
	modSvc := moderation.NewService(storage.Store, pub, log)

	// ── Search ──────────────────────────────────────────────────────────────
	llm, err := ranking.NewLLMRanker(ranking.Config{
		Provider: ranking.Provider(cfg.Ranking.Provider),
		APIKey:   cfg.Ranking.APIKey,
		Model:    cfg.Ranking.Model,
		BaseURL:  cfg.Ranking.BaseURL,
	})
	if err != nil {
		log.Fatal("ranking", zap.Error(err))
	}
	var ranker search.Ranker
	if llm != nil {
		var cache ranking.Cache = ranking.NewMemoryCache()
		if storage.Redis != nil {
			cache = ranking.NewRedisCache(storage.Redis)
		}
		ranker = ranking.NewCachedRanker(llm, cache, cfg.Ranking.CacheTTL, log)
		log.Info("relevance ranking enabled", zap.String("provider", cfg.Ranking.Provider))
	}
	if cfg.Search.CursorSecret == "" {
		log.Warn("CURSOR_SECRET is not set; cursors will not survive a restart")
	}
	engine := search.NewEngine(storage.Store, storage.Store, search.NewCursorCodec(cfg.Search.CursorSecret), ranker,
		search.Options{RankTimeout: cfg.Search.RankTimeout, Logger: log})

	// ── gRPC server ─────────────────────────────────────────────────────────
	grpcSrv := grpcserver.New(grpcserver.NewServer(modSvc, gate), log)
	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		log.Fatal("gRPC listen", zap.Error(err))
	}
	go func() {
		log.Info("gRPC listening", zap.String("port", cfg.Server.GRPCPort))
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error("gRPC server error", zap.Error(err))
		}
	}()

	// ── HTTP server ─────────────────────────────────────────────────────────
	router := httpapi.NewAPIRouter(httpapi.APIConfig{
		Moderation: httpapi.NewModerationHandler(modSvc, gate, log),
		Search:     httpapi.NewSearchHandler(engine, verifier, cfg.Search.RequestTimeout, log),
		RateLimit:  cfg.Search.RateLimit,
		Health:     storage.Health,
		Logger:     log,
	})
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.APIPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Search.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("version", version), zap.String("port", cfg.Server.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ───────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	grpcSrv.GracefulStop()
	log.Info("stopped")
}
