// internal/config/config.go
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// maxLedgerPrice keeps price * feeRateBps inside int64 for the fee split at
// the maximum 10000 bps rate.
const maxLedgerPrice = math.MaxInt64 / 10000

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Ledger      LedgerConfig
	Follower    FollowerConfig
	Intake      IntakeConfig
	Logging     LoggingConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey string
	Issuer    string
}

// LedgerConfig fixes the platform economics. All amounts are stablecoin
// minor units (6 decimals).
type LedgerConfig struct {
	FeeRateBps      int64
	ListingFee      int64
	MinPrice        int64
	MaxPrice        int64
	FinalityDelayMs int64
	PlatformAccount string
}

type FollowerConfig struct {
	PollIntervalMs int64
	BatchSize      int
}

type IntakeConfig struct {
	ConfirmTimeoutMs int64
	PollIntervalMs   int64
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "agentmarket"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			Issuer:    getEnv("JWT_ISSUER", "agentmarket"),
		},
		Ledger: LedgerConfig{
			FeeRateBps:      getEnvAsInt64("LEDGER_FEE_RATE_BPS", 800),
			ListingFee:      getEnvAsInt64("LEDGER_LISTING_FEE", 100000), // $0.10
			MinPrice:        getEnvAsInt64("LEDGER_MIN_PRICE", 10000),    // $0.01
			MaxPrice:        getEnvAsInt64("LEDGER_MAX_PRICE", 1000000000000),
			FinalityDelayMs: getEnvAsInt64("LEDGER_FINALITY_DELAY_MS", 0),
			PlatformAccount: getEnv("LEDGER_PLATFORM_ACCOUNT", "platform"),
		},
		Follower: FollowerConfig{
			PollIntervalMs: getEnvAsInt64("FOLLOWER_POLL_INTERVAL_MS", 250),
			BatchSize:      getEnvAsInt("FOLLOWER_BATCH_SIZE", 100),
		},
		Intake: IntakeConfig{
			ConfirmTimeoutMs: getEnvAsInt64("INTAKE_CONFIRM_TIMEOUT_MS", 5000),
			PollIntervalMs:   getEnvAsInt64("INTAKE_POLL_INTERVAL_MS", 100),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Ledger.FeeRateBps < 0 || c.Ledger.FeeRateBps > 10000 {
		return fmt.Errorf("fee rate must be between 0 and 10000 bps")
	}

	if c.Ledger.MinPrice <= 0 || c.Ledger.MaxPrice < c.Ledger.MinPrice {
		return fmt.Errorf("invalid price bounds [%d, %d]", c.Ledger.MinPrice, c.Ledger.MaxPrice)
	}

	if c.Ledger.MaxPrice > maxLedgerPrice {
		return fmt.Errorf("max price cannot exceed %d minor units", int64(maxLedgerPrice))
	}

	if c.Ledger.ListingFee < 0 {
		return fmt.Errorf("listing fee cannot be negative")
	}

	return nil
}

// Helper functions
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
