package database

import (
	"fmt"
	"log/slog"

	"github.com/Anvoria/walletauth/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the postgres connection used by the repositories
func Connect(cfg *config.Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.Logging.Level == "debug" {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// one connection per pool worker, plus headroom for the health checks
	sqlDB.SetMaxOpenConns(cfg.WorkerPool.PoolSize() + 2)

	slog.Info("Database connected successfully", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)
	return db, nil
}
