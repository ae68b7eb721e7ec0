package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
	"github.com/shopspring/decimal"
)

// Config holds the application configuration
type Config struct {
	AppPort           string          // Application port
	DBUser            string          // Database user
	DBPassword        string          // Database password
	DBHost            string          // Database host
	DBPort            string          // Database port
	DBName            string          // Database name
	JWTSecret         string          // JWT secret key
	JWTExpiry         time.Duration   // JWT lifetime
	RedisAddr         string          // Redis server address
	RedisPass         string          // Redis password
	RedisDB           int             // Redis database number
	CacheTTL          time.Duration   // Ledger cache lifetime, zero disables the cache
	AirdropAmount     decimal.Decimal // Tokens granted per airdrop request
	LedgerOpTimeout   time.Duration   // Deadline for one ledger operation
	ReconcileInterval time.Duration   // Reconciliation sweep period, zero disables it
	ReconcileRepair   bool            // Repair diverged balances during sweeps
	LogLevel          string          // Logrus level
	IsProd            bool            // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:           getEnv("APP_PORT", "5000"),                                // Application port
		DBUser:            os.Getenv("DB_USER"),                                      // Database user
		DBPassword:        os.Getenv("DB_PASSWORD"),                                  // Database password
		DBHost:            getEnv("DB_HOST", "127.0.0.1"),                            // Database host
		DBPort:            getEnv("DB_PORT", "3306"),                                 // Database port
		DBName:            getEnv("DB_NAME", "prism"),                                // Database name
		JWTSecret:         getEnv("JWT_SECRET", "prism_secret_key"),                  // JWT secret key
		JWTExpiry:         getDuration("JWT_EXPIRY", 24*time.Hour),                   // JWT lifetime
		RedisAddr:         getEnv("REDIS_ADDR", "127.0.0.1:6379"),                    // Redis server address
		RedisPass:         os.Getenv("REDIS_PASS"),                                   // Redis password
		RedisDB:           getInt("REDIS_DB", 0),                                     // Redis database number
		CacheTTL:          getDuration("CACHE_TTL", 60*time.Second),                  // Ledger cache lifetime
		AirdropAmount:     getDecimal("AIRDROP_AMOUNT", decimal.NewFromInt(100)),     // Tokens per airdrop
		LedgerOpTimeout:   getDuration("LEDGER_OP_TIMEOUT", 5*time.Second),           // Ledger operation deadline
		ReconcileInterval: getDuration("RECONCILE_INTERVAL", 15*time.Minute),         // Sweep period
		ReconcileRepair:   os.Getenv("RECONCILE_REPAIR") == "true",                   // Repair during sweeps
		LogLevel:          getEnv("LOG_LEVEL", "info"),                               // Logrus level
		IsProd:            os.Getenv("IS_PROD") == "true",                            // Is production environment
	}
}

// DSN builds the MySQL Data Source Name. clientFoundRows makes RowsAffected
// count matched rows, so rewriting a column with its current value is not a miss.
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&loc=UTC&clientFoundRows=true"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v, err := decimal.NewFromString(os.Getenv(key)); err == nil && v.IsPositive() {
		return v
	}
	return fallback
}
