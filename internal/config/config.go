package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"inventoryHub/utils"
)

const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

type DatabaseConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME" envDefault:"inventory"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

// DSN is the lib/pq keyword form used by sqlx.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// URL is the form golang-migrate expects.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Addr     string `env:"API_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"24h"`

	NotificationStore string        `env:"NOTIFICATION_STORE" envDefault:"firestore"`
	PageSize          int           `env:"NOTIFICATION_PAGE_SIZE" envDefault:"20"`
	SubscribeLimit    int           `env:"NOTIFICATION_SUBSCRIBE_LIMIT" envDefault:"500"`
	ScanRounds        int           `env:"NOTIFICATION_SCAN_ROUNDS" envDefault:"10"`
	RetryAttempts     int           `env:"NOTIFICATION_RETRY_ATTEMPTS" envDefault:"3"`
	RetryBackoff      time.Duration `env:"NOTIFICATION_RETRY_BACKOFF" envDefault:"200ms"`

	AuthRateLimit   int64   `env:"AUTH_RATE_LIMIT" envDefault:"30"`
	StreamRateLimit float64 `env:"STREAM_RATE_PER_SECOND" envDefault:"1"`
	StreamBurst     int     `env:"STREAM_BURST" envDefault:"5"`

	RedisAddr         string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	ProfileCacheTTL   time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"5m"`
	WorkerConcurrency int           `env:"WORKER_CONCURRENCY" envDefault:"10"`

	// Base64 KMS ciphertext of the Firebase private key; when set it
	// replaces FIREBASE_PRIVATE_KEY.
	FirebaseKeyCiphertext string `env:"FIREBASE_PRIVATE_KEY_CIPHERTEXT"`
	KMSKeyID              string `env:"AWS_KMS_KEY_ID"`

	Database DatabaseConfig `envPrefix:"DB_"`
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("Failed to load .env file", "error", err)
	}
	return Parse()
}

// Parse binds the current environment without touching .env files.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	switch cfg.NotificationStore {
	case StoreFirestore, StoreMemory:
	default:
		return nil, fmt.Errorf("unknown NOTIFICATION_STORE %q", cfg.NotificationStore)
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET is required in production")
		}
		secret, err := utils.GenerateRandomAlphaNumeric(48)
		if err != nil {
			return nil, err
		}
		cfg.JWTSecret = secret
		slog.Warn("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// NewLogger builds the process logger: JSON in production, text otherwise.
func NewLogger(c *Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
