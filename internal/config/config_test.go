package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ORACLE_MODE", "")
	t.Setenv("PRICE_ACRYLIC_PER_CM2", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, OracleModeTextGen, cfg.External.Oracle.Mode)
	assert.True(t, cfg.Pricing.NeonPerMeter.Equal(decimal.NewFromInt(6000)))
	assert.True(t, cfg.Pricing.AcrylicPerCM2.Equal(decimal.RequireFromString("0.3")))
	assert.Equal(t, "localhost:6379", cfg.GetRedisAddr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PRICE_NEON_PER_METER", "7500.50")
	t.Setenv("ORACLE_MODE", OracleModeAnalyzer)
	t.Setenv("ORACLE_TIMEOUT", "15s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7500.5", cfg.Pricing.NeonPerMeter.String())
	assert.Equal(t, OracleModeAnalyzer, cfg.External.Oracle.Mode)
	assert.Equal(t, 15*time.Second, cfg.External.Oracle.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSAllowedOrigins)
}

func TestLoad_InvalidDecimalFallsBack(t *testing.T) {
	t.Setenv("PRICE_POWER_SUPPLY", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Pricing.PowerSupply.Equal(decimal.NewFromInt(3750)))
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	base, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"short secret", func(c *Config) { c.JWT.Secret = "short" }, "JWT_SECRET"},
		{"unknown oracle", func(c *Config) { c.External.Oracle.Mode = "magic" }, "ORACLE_MODE"},
		{"missing analyzer url", func(c *Config) {
			c.External.Oracle.Mode = OracleModeAnalyzer
			c.External.Oracle.AnalyzerURL = ""
		}, "ANALYZER_URL"},
		{"negative price", func(c *Config) { c.Pricing.LaborPerMeter = decimal.NewFromInt(-1) }, "PRICE_LABOR_PER_METER"},
		{"missing redis", func(c *Config) { c.Redis.Host = "" }, "REDIS_HOST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
