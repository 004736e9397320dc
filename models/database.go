package models

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectionPoolConfig holds connection pool configuration
type ConnectionPoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// GetConnectionPoolConfig reads pool settings from DB_* environment variables,
// keeping the defaults for unset or non-positive values.
func GetConnectionPoolConfig() ConnectionPoolConfig {
	return ConnectionPoolConfig{
		MaxIdleConns:    envPositiveInt("DB_MAX_IDLE_CONNS", 5),
		MaxOpenConns:    envPositiveInt("DB_MAX_OPEN_CONNS", 10),
		ConnMaxLifetime: time.Duration(envPositiveInt("DB_CONN_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		ConnMaxIdleTime: time.Duration(envPositiveInt("DB_CONN_MAX_IDLE_TIME_MINUTES", 10)) * time.Minute,
	}
}

func envPositiveInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// InitDatabase opens the run-history database. An empty DSN disables
// persistence and returns a nil handle.
func InitDatabase(dsn string, verbose bool) (*gorm.DB, error) {
	if dsn == "" {
		return nil, nil
	}

	mode := logger.Silent
	if verbose {
		mode = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(mode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	pool := GetConnectionPoolConfig()
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&ForecastRun{}); err != nil {
		return fmt.Errorf("migrate forecast runs: %w", err)
	}
	return nil
}
