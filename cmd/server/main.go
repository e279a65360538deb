package main // Entry point of the admin API

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-billboard/internal/config"
	"github.com/iliyamo/movie-billboard/internal/database"
	"github.com/iliyamo/movie-billboard/internal/handler"
	"github.com/iliyamo/movie-billboard/internal/logging"
	"github.com/iliyamo/movie-billboard/internal/middleware"
	"github.com/iliyamo/movie-billboard/internal/postgrest"
	"github.com/iliyamo/movie-billboard/internal/queue"
	"github.com/iliyamo/movie-billboard/internal/repository"
	"github.com/iliyamo/movie-billboard/internal/router"
	"github.com/iliyamo/movie-billboard/internal/service"
	"github.com/iliyamo/movie-billboard/internal/utils"
)

func main() {
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash of the given password and exit")
	flag.Parse()
	if *hashPassword != "" {
		hash, err := utils.HashPassword(*hashPassword, 12)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(hash) // value for ADMIN_PASSWORD_HASH
		return
	}

	_ = godotenv.Load() // .env is optional; real env vars win

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	storeCfg := postgrest.DefaultConfig(cfg.StoreURL, cfg.StoreAPIKey)
	storeCfg.Timeout = cfg.StoreTimeout
	client, err := postgrest.NewClient(storeCfg, logger)
	if err != nil {
		return fmt.Errorf("store client: %w", err)
	}

	// Catalog events are optional; without a broker they are dropped.
	var events service.Publisher = queue.NopPublisher{}
	if qcfg := config.LoadQueueConfig(); qcfg.Enabled {
		pub := queue.NewPublisher(qcfg.URL, logger)
		defer func() { _ = pub.Close() }()
		events = pub
	}
	catalog := service.NewCatalog(client, logger, events)

	// The audit log endpoint is only served when MySQL is configured.
	var audit *handler.AuditHandler
	if dbCfg := config.LoadDatabaseConfig(); dbCfg.Enabled {
		db, err := database.Open(context.Background(), dbCfg)
		if err != nil {
			return fmt.Errorf("audit database: %w", err)
		}
		defer db.Close()
		audit = &handler.AuditHandler{Repo: repository.NewAuditRepo(db), Log: logger}
	}

	// Rate limiting degrades to a no-op when Redis is unreachable.
	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger)

	e := router.New(router.Deps{
		Catalog:   handler.NewCatalogHandler(catalog),
		Auth:      handler.NewAuthHandler(cfg, logger),
		Audit:     audit,
		JWTSecret: cfg.JWTSecret,
		RateLimit: limiter,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
