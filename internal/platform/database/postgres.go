package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
}

// NewPostgresDB opens the pool and waits for the server to accept
// connections, retrying while it starts up.
func NewPostgresDB(ctx context.Context, cfg Config, logger *zap.Logger) (*sql.DB, error) {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 10
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	for i := 1; i <= cfg.MaxRetries; i++ {
		logger.Info("Connecting to database", zap.Int("attempt", i), zap.Int("max_attempts", cfg.MaxRetries))

		if err = db.PingContext(ctx); err == nil {
			logger.Info("Database connected")
			return db, nil
		}

		logger.Warn("Database not ready yet", zap.Duration("retry_in", cfg.RetryDelay), zap.Error(err))

		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(cfg.RetryDelay):
		}
	}

	db.Close()
	return nil, fmt.Errorf("connect database after %d attempts: %w", cfg.MaxRetries, err)
}
