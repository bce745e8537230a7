package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Anvoria/walletauth/internal/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed sql/*.sql
var files embed.FS

// Up applies every pending migration
func Up(cfg *config.Config) error {
	return run(cfg, func(m *migrate.Migrate) error { return m.Up() })
}

// Down rolls back the last applied migration
func Down(cfg *config.Config) error {
	return run(cfg, func(m *migrate.Migrate) error { return m.Steps(-1) })
}

func run(cfg *config.Config, step func(*migrate.Migrate) error) error {
	m, closeDB, err := newMigrate(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	slog.Info("Database schema", "version", version, "dirty", dirty)
	return nil
}

func newMigrate(cfg *config.Config) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("postgres", cfg.Database.URL())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	source, err := iofs.New(files, "sql")
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, func() { _, _ = m.Close() }, nil
}
