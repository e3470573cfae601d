package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chad-syntax/agentsmith-sub001/internal/api"
	"github.com/chad-syntax/agentsmith-sub001/internal/auth"
	"github.com/chad-syntax/agentsmith-sub001/internal/config"
	"github.com/chad-syntax/agentsmith-sub001/internal/database"
	"github.com/chad-syntax/agentsmith-sub001/internal/execlog"
	"github.com/chad-syntax/agentsmith-sub001/internal/execute"
	"github.com/chad-syntax/agentsmith-sub001/internal/globals"
	"github.com/chad-syntax/agentsmith-sub001/internal/queue"
	"github.com/chad-syntax/agentsmith-sub001/internal/source"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	// Redis backs the globals cache and the finalize queue. The service
	// degrades to direct writes and uncached globals without it.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	var queueClient *queue.Client
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without cache and queue", "error", err)
		rdb = nil
	} else {
		defer rdb.Close()
		queueClient = queue.NewClient(cfg.Redis)
		defer queueClient.Close()
	}

	strategy, err := source.ParseStrategy(cfg.Engine.FetchStrategy)
	if err != nil {
		slog.Error("invalid fetch strategy", "error", err)
		os.Exit(1)
	}

	remote := source.NewRemoteSource(db)
	fsSource := source.NewFSSource(cfg.Engine.AgentsmithDir)
	coordinator := source.NewCoordinator(strategy, fsSource, remote)

	globalsCache := globals.NewCache(db, rdb, cfg.Engine.GlobalsTTL)
	logStore := execlog.NewStore(db)
	secrets := auth.NewVaultStore(db)

	executor := execute.New(coordinator, globalsCache, logStore, secrets, execute.Options{
		DefaultProvider: cfg.LLM.DefaultProvider,
		DefaultModel:    cfg.LLM.DefaultModel,
		MaxRetries:      cfg.LLM.MaxRetries,
		Timeout:         cfg.Engine.ExecuteTimeout,
		Queue:           queueClient,
	})

	handler := api.NewRouter(api.Deps{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		Remote:   remote,
		Fetcher:  coordinator,
		Executor: executor,
		Logs:     logStore,
	})

	srv := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Streamed executions hold the response open for the full
		// request budget.
		WriteTimeout: cfg.Engine.RequestBudget,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr(), "strategy", string(strategy))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	if err := executor.Shutdown(shutdownCtx); err != nil {
		slog.Error("finalize tasks did not drain", "error", err)
	}
	slog.Info("server stopped")
}
