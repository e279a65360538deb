package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/movie-billboard/internal/config"
)

// Open connects to the audit database and pings it before returning.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := mysql.NewConfig()
	dsn.User = cfg.User
	dsn.Passwd = cfg.Pass
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	dsn.DBName = cfg.Name
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	dsn.Params = map[string]string{"charset": "utf8mb4"}

	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql config: %w", err)
	}
	db := sql.OpenDB(connector)

	// the audit log writes one row per event; a small pool is plenty
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dsn.Addr, err)
	}
	return db, nil
}

// schema holds the statements Migrate applies. Each one is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS catalog_audit (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		event_type  VARCHAR(16)  NOT NULL,
		entity      VARCHAR(32)  NOT NULL,
		entity_id   VARCHAR(64)  NULL,
		movie_id    VARCHAR(64)  NULL,
		actor_id    VARCHAR(64)  NULL,
		occurred_at DATETIME(6)  NOT NULL,
		received_at DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		INDEX idx_catalog_audit_movie (movie_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables the service owns in MySQL.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
