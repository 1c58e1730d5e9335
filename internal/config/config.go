package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every runtime setting the service needs. It is built once in
// main and handed to constructors explicitly; business logic never reads the
// environment on its own.
type Config struct {
	Addr        string
	Environment string

	PostgresDSN string
	RedisAddr   string

	TokenSecret string
	TokenIssuer string
	TokenTTL    time.Duration

	RateBurst  int
	RatePerSec int

	AllowedOrigins []string
}

// ErrMissingTokenSecret is returned when no signing secret is configured.
var ErrMissingTokenSecret = errors.New("config: GIAS_TOKEN_SECRET is not set")

const defaultTokenTTL = 24 * time.Hour

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:        getenv("GIAS_ADDR", ":8080"),
		Environment: getenv("GIAS_ENV", "development"),
		PostgresDSN: os.Getenv("GIAS_PG_DSN"),
		RedisAddr:   os.Getenv("GIAS_REDIS_ADDR"),
		TokenSecret: os.Getenv("GIAS_TOKEN_SECRET"),
		TokenIssuer: getenv("GIAS_TOKEN_ISSUER", "gias"),
		TokenTTL:    defaultTokenTTL,
		RateBurst:   getint("GIAS_RATE_BURST", 20),
		RatePerSec:  getint("GIAS_RATE_PER_SEC", 10),
	}

	if raw := os.Getenv("GIAS_TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return Config{}, errors.New("config: GIAS_TOKEN_TTL must be a positive duration")
		}
		cfg.TokenTTL = ttl
	}

	if raw := os.Getenv("GIAS_ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	if strings.TrimSpace(cfg.TokenSecret) == "" {
		return Config{}, ErrMissingTokenSecret
	}
	return cfg, nil
}

// Production reports whether the service runs with production hardening.
func (c Config) Production() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
