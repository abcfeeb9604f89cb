// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for our application
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Security SecurityConfig
	External ExternalConfig
	Pricing  PricingConfig
	Upload   UploadConfig
	Worker   WorkerConfig
	Logging  LoggingConfig
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name           string
	Version        string
	Environment    string
	Debug          bool
	BaseURL        string
	CompanyName    string
	CompanyAddress string
	CompanyPhone   string
	CompanyEmail   string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	LogQueries   bool
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// JWTConfig contains JWT token configuration
type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	BcryptCost         int
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	TrustedProxies     []string
	SeedAdminEmail     string
	SeedAdminPassword  string
}

// ExternalConfig contains external service configurations
type ExternalConfig struct {
	Email   EmailConfig
	Storage StorageConfig
	Oracle  OracleConfig
}

// EmailConfig contains email service configuration
type EmailConfig struct {
	Provider  string
	FromEmail string
	FromName  string
	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
}

// StorageConfig contains file storage configuration
type StorageConfig struct {
	LocalPath  string
	PublicPath string
}

// Oracle modes
const (
	OracleModeTextGen  = "textgen"
	OracleModeAnalyzer = "analyzer"
)

// OracleConfig configures the external price estimation service
type OracleConfig struct {
	Mode          string
	AnalyzerURL   string
	TextGenURL    string
	TextGenAPIKey string
	TextGenModel  string
	Timeout       time.Duration
}

// PricingConfig holds the fallback unit prices used when the catalog has
// no matching raw material.
type PricingConfig struct {
	NeonPerMeter  decimal.Decimal
	PowerSupply   decimal.Decimal
	AcrylicPerCM2 decimal.Decimal
	LaborPerMeter decimal.Decimal
}

// UploadConfig contains file upload configuration
type UploadConfig struct {
	MaxSize           int64
	AllowedExtensions []string
}

// WorkerConfig configures the background job pool
type WorkerConfig struct {
	EmailWorkers int
	PollTimeout  time.Duration
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	config := &Config{
		App: AppConfig{
			Name:           getEnv("APP_NAME", "Neon Backend"),
			Version:        getEnv("APP_VERSION", "1.0.0"),
			Environment:    getEnv("APP_ENV", "development"),
			Debug:          getEnvAsBool("APP_DEBUG", true),
			BaseURL:        getEnv("APP_BASE_URL", "http://localhost:3000"),
			CompanyName:    getEnv("COMPANY_NAME", "Neon Arte"),
			CompanyAddress: getEnv("COMPANY_ADDRESS", ""),
			CompanyPhone:   getEnv("COMPANY_PHONE", ""),
			CompanyEmail:   getEnv("COMPANY_EMAIL", ""),
		},
		Server: ServerConfig{
			Port:           getEnv("APP_PORT", "8080"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 75*time.Second),
			MaxBodyBytes:   getEnvAsInt64("SERVER_MAX_BODY_BYTES", 10<<20),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Name:         getEnv("DB_NAME", "neon_db"),
			User:         getEnv("DB_USER", "neon_user"),
			Password:     getEnv("DB_PASSWORD", "neon_password"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 300*time.Second),
			LogQueries:   getEnvAsBool("DB_LOG_QUERIES", false),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "change-me-in-production-neon-backend-secret"),
			AccessTokenExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRE", 24*time.Hour),
			RefreshTokenExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRE", 7*24*time.Hour),
		},
		Security: SecurityConfig{
			BcryptCost:         getEnvAsInt("BCRYPT_COST", 12),
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
			CORSAllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			CORSAllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}),
			TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
			SeedAdminEmail:     getEnv("SEED_ADMIN_EMAIL", ""),
			SeedAdminPassword:  getEnv("SEED_ADMIN_PASSWORD", ""),
		},
		External: ExternalConfig{
			Email: EmailConfig{
				Provider:  getEnv("EMAIL_PROVIDER", "log"),
				FromEmail: getEnv("FROM_EMAIL", "noreply@neonarte.com.ar"),
				FromName:  getEnv("FROM_NAME", "Neon Arte"),
				SMTPHost:  getEnv("SMTP_HOST", ""),
				SMTPPort:  getEnvAsInt("SMTP_PORT", 587),
				SMTPUser:  getEnv("SMTP_USER", ""),
				SMTPPass:  getEnv("SMTP_PASS", ""),
			},
			Storage: StorageConfig{
				LocalPath:  getEnv("STORAGE_LOCAL_PATH", "./uploads"),
				PublicPath: getEnv("STORAGE_PUBLIC_PATH", "/uploads"),
			},
			Oracle: OracleConfig{
				Mode:          getEnv("ORACLE_MODE", OracleModeTextGen),
				AnalyzerURL:   getEnv("ANALYZER_URL", "http://apianalyzer:5000"),
				TextGenURL:    getEnv("TEXTGEN_URL", "https://api.openai.com/v1/chat/completions"),
				TextGenAPIKey: getEnv("TEXTGEN_API_KEY", ""),
				TextGenModel:  getEnv("TEXTGEN_MODEL", "gpt-4o-mini"),
				Timeout:       getEnvAsDuration("ORACLE_TIMEOUT", 60*time.Second),
			},
		},
		Pricing: PricingConfig{
			NeonPerMeter:  getEnvAsDecimal("PRICE_NEON_PER_METER", "6000"),
			PowerSupply:   getEnvAsDecimal("PRICE_POWER_SUPPLY", "3750"),
			AcrylicPerCM2: getEnvAsDecimal("PRICE_ACRYLIC_PER_CM2", "0.3"),
			LaborPerMeter: getEnvAsDecimal("PRICE_LABOR_PER_METER", "10000"),
		},
		Upload: UploadConfig{
			MaxSize:           getEnvAsInt64("UPLOAD_MAX_SIZE", 5<<20),
			AllowedExtensions: getEnvAsSlice("UPLOAD_ALLOWED_EXTENSIONS", []string{"jpg", "jpeg", "png"}),
		},
		Worker: WorkerConfig{
			EmailWorkers: getEnvAsInt("WORKER_EMAIL_POOL_SIZE", 2),
			PollTimeout:  getEnvAsDuration("WORKER_POLL_TIMEOUT", 5*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "debug"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	switch c.External.Oracle.Mode {
	case OracleModeTextGen:
		if c.External.Oracle.TextGenURL == "" {
			return fmt.Errorf("TEXTGEN_URL is required when ORACLE_MODE=%s", OracleModeTextGen)
		}
	case OracleModeAnalyzer:
		if c.External.Oracle.AnalyzerURL == "" {
			return fmt.Errorf("ANALYZER_URL is required when ORACLE_MODE=%s", OracleModeAnalyzer)
		}
	default:
		return fmt.Errorf("unsupported ORACLE_MODE: %s", c.External.Oracle.Mode)
	}

	for name, price := range map[string]decimal.Decimal{
		"PRICE_NEON_PER_METER":  c.Pricing.NeonPerMeter,
		"PRICE_POWER_SUPPLY":    c.Pricing.PowerSupply,
		"PRICE_ACRYLIC_PER_CM2": c.Pricing.AcrylicPerCM2,
		"PRICE_LABOR_PER_METER": c.Pricing.LaborPerMeter,
	} {
		if price.IsNegative() {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// getEnvAsDecimal falls back to defaultValue when the variable is unset or
// not a valid number. defaultValue itself must parse.
func getEnvAsDecimal(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(defaultValue)
}
