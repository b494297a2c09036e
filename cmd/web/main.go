package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"bookstore/internal/api"
	"bookstore/internal/config"
	transporthttp "bookstore/internal/http"
	"bookstore/internal/platform/database"
	"bookstore/internal/platform/logging"
	"bookstore/internal/platform/migrate"
	"bookstore/internal/session"
	"bookstore/internal/tokenstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			panic(fmt.Errorf("load .env file: %w", err))
		}
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)

	backend, cleanup, err := buildTokenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize token store", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	client, err := api.NewClient(cfg.APIBaseURL, api.WithTimeout(cfg.APITimeout), api.WithLogger(logger))
	if err != nil {
		logger.Error("invalid API base URL", "error", err)
		os.Exit(1)
	}

	registry := session.NewRegistry(func(ctx context.Context, id string) (*session.Manager, error) {
		store := tokenstore.New(backend, id)
		return session.NewManager(ctx, store, client.WithTokens(store),
			session.WithLogger(logger.With("session", id)),
			session.WithProfileTimeout(cfg.ProfileTimeout),
		)
	}, session.WithIdleTimeout(cfg.SessionIdleTimeout), session.WithMaxSessions(cfg.MaxSessions))
	defer registry.Close()
	go registry.Run(ctx, time.Minute)

	renderer, err := transporthttp.NewRenderer(logger)
	if err != nil {
		logger.Error("failed to parse templates", "error", err)
		os.Exit(1)
	}
	router := transporthttp.NewRouter(cfg, registry, client, renderer, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.APITimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go func() {
		logger.Info("Bookstore web listening", "addr", srv.Addr, "api", client.BaseURL(), "token_store", cfg.TokenStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildTokenBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (tokenstore.Backend, func(), error) {
	switch cfg.TokenStore {
	case config.TokenStorePostgres:
		db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			_ = db.Close()
		}
		if err := migrate.Apply(ctx, db, logger); err != nil {
			cleanup()
			return nil, nil, err
		}
		logger.Info("connected to postgres")
		return tokenstore.NewPostgresBackend(db), cleanup, nil

	case config.TokenStoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		if cfg.RedisPassword != "" {
			opts.Password = cfg.RedisPassword
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("connected to redis", "addr", opts.Addr)
		return tokenstore.NewRedisBackend(rdb, tokenstore.WithRedisTTL(cfg.TokenTTL)), func() { _ = rdb.Close() }, nil

	default:
		logger.Info("using in-memory token store")
		return tokenstore.NewMemoryBackend(), nil, nil
	}
}
