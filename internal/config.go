package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "dev-secret-change-in-production"

type Config struct {
	Env         string
	LogLevel    string
	Port        uint16
	DatabaseUrl string // empty selects the in-memory store
	JWTSecret   string
	BaseURL     string
	CORSOrigins []string
	Scheduler   SchedulerConfig
	RedisURL    string
	NatsURL     string
	Email       EmailConfig
	Storage     StorageConfig
	Sentry      SentryConfig
}

// SchedulerConfig controls the sale lifecycle loop.
type SchedulerConfig struct {
	Interval time.Duration
	LockTTL  time.Duration
}

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	DSN              string
	Enabled          bool
	Environment      string
	Release          string
	SampleRate       float64
	TracesSampleRate float64
	Debug            bool
}

type EmailConfig struct {
	Host     string
	Port     uint16
	Username string
	Password string
	From     string
	FromName string
}

// Enabled reports whether order confirmation mail can be sent.
func (c EmailConfig) Enabled() bool {
	return c.Host != ""
}

type StorageConfig struct {
	Provider    string // "local" or "s3"
	LocalPath   string
	LocalURL    string
	S3Region    string
	S3Endpoint  string // custom endpoint, e.g. Cloudflare R2
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

func NewConfig() (*Config, error) {
	// Try to load .env from current directory, then walk up to find it (max 2 levels)
	err := godotenv.Load()
	if err != nil {
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			slog.Default().Warn("Warning: .env file not found, using environment variables and defaults")
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:         v.GetString("ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Port:        v.GetUint16("PORT"),
		DatabaseUrl: v.GetString("DATABASE_URL"),
		JWTSecret:   v.GetString("JWT_SECRET"),
		BaseURL:     v.GetString("BASE_URL"),
		CORSOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		Scheduler: SchedulerConfig{
			Interval: v.GetDuration("SALE_SCHEDULER_INTERVAL"),
			LockTTL:  v.GetDuration("SALE_SCHEDULER_LOCK_TTL"),
		},
		RedisURL: v.GetString("REDIS_URL"),
		NatsURL:  v.GetString("NATS_URL"),
		Email: EmailConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetUint16("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
			FromName: v.GetString("EMAIL_FROM_NAME"),
		},
		Storage: StorageConfig{
			Provider:    v.GetString("STORAGE_PROVIDER"),
			LocalPath:   v.GetString("LOCAL_STORAGE_PATH"),
			LocalURL:    v.GetString("LOCAL_STORAGE_URL"),
			S3Region:    v.GetString("S3_REGION"),
			S3Endpoint:  v.GetString("S3_ENDPOINT"),
			S3Bucket:    v.GetString("S3_BUCKET"),
			S3AccessKey: v.GetString("S3_ACCESS_KEY_ID"),
			S3SecretKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			S3PublicURL: v.GetString("S3_PUBLIC_URL"),
		},
		Sentry: SentryConfig{
			DSN:              v.GetString("SENTRY_DSN"),
			Enabled:          v.GetBool("SENTRY_ENABLED"),
			Environment:      v.GetString("SENTRY_ENVIRONMENT"),
			Release:          v.GetString("SENTRY_RELEASE"),
			SampleRate:       v.GetFloat64("SENTRY_SAMPLE_RATE"),
			TracesSampleRate: v.GetFloat64("SENTRY_TRACES_SAMPLE_RATE"),
			Debug:            v.GetBool("SENTRY_DEBUG"),
		},
	}

	// Validate env
	validEnv := cfg.Env == "dev" || cfg.Env == "prod"
	if !validEnv {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	// Validate log level
	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if cfg.Scheduler.Interval <= 0 {
		return nil, fmt.Errorf("SALE_SCHEDULER_INTERVAL must be positive, got %s", cfg.Scheduler.Interval)
	}

	// Validate JWT secret in production
	if cfg.Env == "prod" && cfg.JWTSecret == defaultJWTSecret {
		return nil, fmt.Errorf("JWT_SECRET must be set in production environment")
	}

	if cfg.Storage.Provider != "local" && cfg.Storage.Provider != "s3" {
		return nil, fmt.Errorf("STORAGE_PROVIDER must be local or s3, got %q", cfg.Storage.Provider)
	}
	if cfg.Storage.Provider == "s3" {
		if cfg.Storage.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET required when using s3 storage")
		}
		if cfg.Storage.S3PublicURL == "" {
			return nil, fmt.Errorf("S3_PUBLIC_URL required when using s3 storage")
		}
	}

	return cfg, nil
}

// splitList parses a comma separated env value, dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", 3000)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("BASE_URL", "http://localhost:3000")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("SALE_SCHEDULER_INTERVAL", time.Hour)
	v.SetDefault("SALE_SCHEDULER_LOCK_TTL", 5*time.Minute)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("NATS_URL", "")

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 1025)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "orders@atelier.local")
	v.SetDefault("EMAIL_FROM_NAME", "Atelier")

	v.SetDefault("STORAGE_PROVIDER", "local")
	v.SetDefault("LOCAL_STORAGE_PATH", "./uploads")
	v.SetDefault("LOCAL_STORAGE_URL", "/uploads")
	v.SetDefault("S3_REGION", "auto")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_ACCESS_KEY_ID", "")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "")
	v.SetDefault("S3_PUBLIC_URL", "")

	v.SetDefault("SENTRY_DSN", "")
	v.SetDefault("SENTRY_ENABLED", false) // Disabled by default for development
	v.SetDefault("SENTRY_ENVIRONMENT", "development")
	v.SetDefault("SENTRY_RELEASE", "")
	v.SetDefault("SENTRY_SAMPLE_RATE", 1.0)
	v.SetDefault("SENTRY_TRACES_SAMPLE_RATE", 0.0)
	v.SetDefault("SENTRY_DEBUG", false)
}
