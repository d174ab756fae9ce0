package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sqlchat/sqlchat/internal/api"
	"github.com/sqlchat/sqlchat/internal/assistant"
	"github.com/sqlchat/sqlchat/internal/auth"
	"github.com/sqlchat/sqlchat/internal/chat"
	"github.com/sqlchat/sqlchat/internal/config"
	"github.com/sqlchat/sqlchat/internal/observability"
	"github.com/sqlchat/sqlchat/internal/safety"
	sessionpostgres "github.com/sqlchat/sqlchat/internal/session/postgres"
	warehouseduckdb "github.com/sqlchat/sqlchat/internal/warehouse/duckdb"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("sqlchat-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	sessionDB, err := sessionpostgres.Open(context.Background(), sessionpostgres.DBConfig{
		DSN:             cfg.Sessions.DSN,
		MaxOpenConns:    cfg.Sessions.MaxOpenConns,
		MaxIdleConns:    cfg.Sessions.MaxIdleConns,
		ConnMaxIdleTime: cfg.Sessions.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Sessions.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open session db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = sessionDB.Close() }()

	sessionStore := sessionpostgres.NewStore(sessionDB)

	if err := warehouseduckdb.EnsureSchema(context.Background(), cfg.Warehouse.Path); err != nil {
		logger.Error("failed to prepare warehouse", slog.Any("error", err))
		os.Exit(1)
	}
	executor := &warehouseduckdb.Executor{Path: cfg.Warehouse.Path}

	ai, err := assistant.NewOpenAIAssistant(assistant.OpenAIConfig{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize assistant", slog.Any("error", err))
		os.Exit(1)
	}

	gate := safety.Gate{Strict: cfg.Safety.Strict}
	engine := &chat.Engine{
		Sessions: sessionStore,
		Decider:  ai,
		Synth:    ai,
		Executor: executor,
		Gate:     gate,
		MaxTurns: cfg.Chat.MaxTurns,
		Logger:   logger,
	}

	deps := api.Dependencies{
		Logger:     logger,
		Sessions:   sessionStore,
		Executor:   executor,
		Gate:       gate,
		Chat:       engine,
		Translator: ai,
		Readiness: api.CombineReadinessChecks(
			sessionStore.HealthCheck,
			api.CheckWarehousePath(cfg),
		),
		DependencyTimout: time.Second,
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
