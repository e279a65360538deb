// Command audit-consumer reads catalog events from RabbitMQ and stores
// them in the MySQL audit log.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-billboard/internal/config"
	"github.com/iliyamo/movie-billboard/internal/database"
	"github.com/iliyamo/movie-billboard/internal/logging"
	"github.com/iliyamo/movie-billboard/internal/queue"
	"github.com/iliyamo/movie-billboard/internal/repository"
)

func main() {
	_ = godotenv.Load()

	logger, err := logging.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dbCfg := config.LoadDatabaseConfig()
	if !dbCfg.Enabled {
		logger.Fatal("DB_HOST is required for the audit consumer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, dbCfg)
	if err != nil {
		logger.Fatal("open audit database", zap.Error(err))
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = database.Migrate(migrateCtx, db)
	cancel()
	if err != nil {
		logger.Fatal("migrate audit database", zap.Error(err))
	}

	qcfg := config.LoadQueueConfig()
	err = queue.StartCatalogConsumer(ctx, qcfg.URL, repository.NewAuditRepo(db), logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
	logger.Info("audit consumer stopped")
}
