// Command ecosystem-server starts the EcoSystem account HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/and161185/ecosystem-api/internal/cache"
	"github.com/and161185/ecosystem-api/internal/config"
	"github.com/and161185/ecosystem-api/internal/crypto"
	"github.com/and161185/ecosystem-api/internal/filestore"
	"github.com/and161185/ecosystem-api/internal/migrate"
	"github.com/and161185/ecosystem-api/internal/repository/postgres"
	httpserver "github.com/and161185/ecosystem-api/internal/server/http"
	"github.com/and161185/ecosystem-api/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and serves the API until signalled.
func main() {
	// optional; real environment wins
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.StorageBackend),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseDSN, logger); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer db.Close()

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal("file store", zap.Error(err))
	}

	authors, closeCache, err := newAuthorCache(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer closeCache()

	accounts := service.NewAccountService(
		postgres.NewAccountRepo(db),
		crypto.NewHasher(),
		store,
		authors,
		logger,
	)
	api := httpserver.New(accounts, []byte(cfg.JWTKey), logger, cfg.MaxUploadBytes)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}

func newStore(ctx context.Context, cfg *config.Config) (filestore.Store, error) {
	if cfg.StorageBackend == config.BackendS3 {
		return filestore.NewS3(ctx, cfg.S3)
	}
	return filestore.NewLocal(cfg.PhotoDir)
}

// newAuthorCache returns a no-op cache when no redis URL is configured.
func newAuthorCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (cache.AuthorCache, func(), error) {
	if cfg.RedisURL == "" {
		return cache.Nop{}, func() {}, nil
	}
	rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewRedis(rdb, cfg.AuthorCacheTTL, log), func() { _ = rdb.Close() }, nil
}
