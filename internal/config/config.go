package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const defaultIdentitySessionURL = "https://demobackend.emergentagent.com/auth/v1/env/oauth/session-data"

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	DBDriver    string
	MySQLDSN    string
	SQLiteDSN   string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	SwaggerHost string

	StripeAPIKey        string
	StripeWebhookSecret string
	IdentitySessionURL  string

	CookieSecure bool
	// AuthRateLimit is the per-IP requests/second allowed on /api/auth; 0 disables it.
	AuthRateLimit float64
	LogLevel      string
	ResetDB       bool
}

// DSN returns the connection string for the selected driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLiteDSN
	}
	return c.MySQLDSN
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DBDriver:    getEnv("DB_DRIVER", "mysql"),
		MySQLDSN:    getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/classifieds?charset=utf8mb4&parseTime=True&loc=UTC"),
		SQLiteDSN:   getEnv("SQLITE_DSN", "classifieds.db"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),

		StripeAPIKey:        os.Getenv("STRIPE_API_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		IdentitySessionURL:  getEnv("IDENTITY_SESSION_URL", defaultIdentitySessionURL),

		CookieSecure:  getEnvBool("COOKIE_SECURE", false),
		AuthRateLimit: getEnvFloat("AUTH_RATE_LIMIT", 0),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		ResetDB:       getEnvBool("RESET_DB", false),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}
