// Package testutil holds helpers shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/neonarte/neon-backend/internal/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a file-backed SQLite database in the test's temp dir and
// migrates the given models. Transactions and conditional updates behave
// as on the production store; row locks are ignored by the dialect.
func NewDB(t testing.TB, models ...interface{}) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	if len(models) > 0 {
		require.NoError(t, db.AutoMigrate(models...))
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Config returns a configuration suitable for unit tests.
func Config() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "neon-test", Environment: "test", BaseURL: "http://localhost:3000", CompanyName: "Neon Arte"},
		JWT: config.JWTConfig{
			Secret:             "0123456789abcdef0123456789abcdef",
			AccessTokenExpiry:  time.Hour,
			RefreshTokenExpiry: 24 * time.Hour,
		},
		Security: config.SecurityConfig{BcryptCost: 4, RateLimitPerMinute: 1000},
		External: config.ExternalConfig{
			Email:  config.EmailConfig{Provider: "log", FromEmail: "noreply@test.local", FromName: "Neon Test"},
			Oracle: config.OracleConfig{Mode: config.OracleModeTextGen, Timeout: 5 * time.Second},
		},
		Pricing: config.PricingConfig{
			NeonPerMeter:  decimal.NewFromInt(6000),
			PowerSupply:   decimal.NewFromInt(3750),
			AcrylicPerCM2: decimal.RequireFromString("0.3"),
			LaborPerMeter: decimal.NewFromInt(10000),
		},
		Upload: config.UploadConfig{MaxSize: 1 << 20, AllowedExtensions: []string{"jpg", "jpeg", "png"}},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}
