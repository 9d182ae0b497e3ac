// config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config is loaded once at startup from the environment (and .env when present).
type Config struct {
	Port           string `env:"PORT,default=4400"`
	DatabaseURL    string `env:"DATABASE_URL,required"`
	JWTSecret      string `env:"JWT_SECRET,required"`
	JWTIssuer      string `env:"JWT_ISSUER"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	Timezone       string `env:"TIMEZONE,default=UTC"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`

	Storage StorageConfig

	IdentitySyncURL      string        `env:"IDENTITY_SYNC_URL"`
	IdentityServiceToken string        `env:"IDENTITY_SERVICE_TOKEN"`
	IdentitySyncInterval time.Duration `env:"IDENTITY_SYNC_INTERVAL,default=1m"`

	SalesTipsCron       string        `env:"SALES_TIPS_CRON,default=0 9 * * 1-5"`
	SalesTipsBatchSize  int           `env:"SALES_TIPS_BATCH_SIZE,default=50"`
	SalesTipsBatchDelay time.Duration `env:"SALES_TIPS_BATCH_DELAY,default=2s"`

	RateLimitRPS   int `env:"RATE_LIMIT_RPS,default=20"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST,default=40"`

	LicenseCacheTTL  time.Duration `env:"LICENSE_CACHE_TTL,default=5m"`
	LicenseCacheSize int           `env:"LICENSE_CACHE_SIZE,default=1024"`
}

// StorageConfig points at an S3-compatible bucket (Cloudflare R2 in production).
type StorageConfig struct {
	Endpoint        string        `env:"STORAGE_ENDPOINT"`
	Region          string        `env:"STORAGE_REGION,default=auto"`
	AccessKeyID     string        `env:"STORAGE_ACCESS_KEY_ID"`
	SecretAccessKey string        `env:"STORAGE_SECRET_ACCESS_KEY"`
	Bucket          string        `env:"STORAGE_BUCKET"`
	PublicURL       string        `env:"STORAGE_PUBLIC_URL"`
	SignedURLTTL    time.Duration `env:"SIGNED_URL_TTL,default=15m"`
}

// Enabled reports whether enough storage settings are present to build a client.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// IdentitySyncEnabled reports whether the identity provider sync worker should run.
func (c *Config) IdentitySyncEnabled() bool {
	return c.IdentitySyncURL != "" && c.IdentityServiceToken != ""
}

// Origins returns ALLOWED_ORIGINS trimmed and re-joined the way fiber's cors middleware expects.
func (c *Config) Origins() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

// Location resolves TIMEZONE, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Warnf("⚠️  [CONFIG] unknown TIMEZONE %q, using UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

// Load reads .env (if any) and decodes the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if cfg.SalesTipsBatchSize <= 0 {
		cfg.SalesTipsBatchSize = 50
	}
	return &cfg, nil
}

// SetupLogging configures the package-level logrus logger.
func SetupLogging(level, format string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stdout)

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
}
