package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"datapulse/internal/alerts"
	"datapulse/internal/analytics"
	"datapulse/internal/config"
	"datapulse/internal/dataset"
	"datapulse/internal/handlers"
	"datapulse/internal/ingest"
	"datapulse/internal/middleware"
	"datapulse/internal/observability"
	"datapulse/internal/respond"
	"datapulse/internal/schema"
	"datapulse/internal/server"
)

const dataLoadTimeout = 60 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"data_dir", cfg.Data.DataDir,
	)

	store := dataset.NewStore()
	mappings := schema.NewMappingStore()
	pipeline := ingest.NewPipeline(store, mappings, logger)

	ctx, cancel := context.WithTimeout(context.Background(), dataLoadTimeout)
	defer cancel()

	start := time.Now()
	reports, err := pipeline.LoadDir(ctx, cfg.Data.DataDir)
	if err != nil {
		logger.Error("failed to load data directory", "error", err)
		os.Exit(1)
	}
	logger.Info("startup data load complete",
		"files", len(reports),
		"rows", store.TotalRows(),
		"duration", time.Since(start),
	)

	rules, err := alerts.LoadRules(cfg.Data.AlertRulesFile)
	if err != nil {
		logger.Error("failed to load alert rules", "error", err)
		os.Exit(1)
	}

	analyzer := analytics.NewAnalyzer(store, mappings)
	assembler := respond.NewAssembler(analyzer, store, logger)

	api := handlers.NewAPIHandlers(assembler, analyzer, pipeline, store, mappings, rules, cfg.Data.MaxUploadBytes, logger)
	sse := handlers.NewSSEHandlers(assembler, analyzer, store, logger)
	srv := server.NewServer(api, sse, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("dataset store closing", "rows", store.TotalRows())
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
