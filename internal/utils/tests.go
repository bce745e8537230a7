package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Anvoria/walletauth/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// FindProjectRoot finds the project root directory by looking for go.mod file
func FindProjectRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return wd, nil
		}
		dir = parent
	}
}

// LoadTestConfig loads configuration for database tests from TEST_CONFIG_PATH.
// The test is skipped when the variable is unset.
func LoadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	configPath := os.Getenv("TEST_CONFIG_PATH")
	if configPath == "" {
		t.Skip("TEST_CONFIG_PATH not set, skipping database test")
	}

	if !filepath.IsAbs(configPath) {
		projectRoot, err := FindProjectRoot()
		if err != nil {
			t.Fatalf("Failed to find project root: %v", err)
		}
		configPath = filepath.Join(projectRoot, configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config from %s: %v", configPath, err)
	}

	return cfg
}

// SetupTestDB creates a PostgreSQL database connection for testing
// and auto-migrates the provided models
func SetupTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()
	cfg := LoadTestConfig(t)

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("Failed to migrate test database: %v", err)
		}
	}

	return db
}
