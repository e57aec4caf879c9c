// Package config reads runtime settings from the environment, after loading
// a .env file when one is present.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/yeremiapane/restaurant-pos/money"
)

type Config struct {
	Port            string
	GinMode         string
	DBDriver        string
	DBDSN           string
	JWTSecret       string
	LogLevel        string
	LogJSON         bool
	ShutdownTimeout time.Duration
	CORSOrigin      string

	// OrderCloseTolerance is how much an order may be underpaid and still
	// close without a shortfall warning.
	OrderCloseTolerance money.Amount
	// CashShortageLimit is the drawer shortage above which a supervisor PIN
	// is required, when the company has one configured.
	CashShortageLimit money.Amount

	RateLimitRPS   float64
	RateLimitBurst int

	RabbitMQURL      string
	RabbitMQExchange string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisPrefix      string
	EventBuffer      int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		GinMode:          getEnv("GIN_MODE", "debug"),
		DBDriver:         getEnv("DB_DRIVER", "mysql"),
		DBDSN:            os.Getenv("DB_DSN"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogJSON:          getBool("LOG_JSON", false),
		ShutdownTimeout:  getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		CORSOrigin:       getEnv("CORS_ORIGIN", "*"),
		RateLimitRPS:     getFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:   getInt("RATE_LIMIT_BURST", 40),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", "pos.events"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getInt("REDIS_DB", 0),
		RedisPrefix:      getEnv("REDIS_PREFIX", "pos"),
		EventBuffer:      getInt("EVENT_BUFFER", 1024),
	}

	var err error
	if cfg.OrderCloseTolerance, err = getAmount("ORDER_CLOSE_TOLERANCE", "0.00"); err != nil {
		return cfg, err
	}
	if cfg.CashShortageLimit, err = getAmount("CASH_SHORTAGE_LIMIT", "0.00"); err != nil {
		return cfg, err
	}

	if cfg.DBDSN == "" && cfg.DBDriver != "sqlite" {
		return cfg, errors.New("DB_DSN is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		// Support seconds as integer without suffix.
		if secs, convErr := strconv.Atoi(val); convErr == nil {
			return time.Duration(secs) * time.Second
		}
		return fallback
	}
	return d
}

func getAmount(key, fallback string) (money.Amount, error) {
	a, err := money.Parse(getEnv(key, fallback))
	if err != nil {
		return money.Zero(), errors.New(key + ": " + err.Error())
	}
	if a.IsNegative() {
		return money.Zero(), errors.New(key + " must not be negative")
	}
	return a, nil
}
