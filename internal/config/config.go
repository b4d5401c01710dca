package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/futig/dashboard-backend/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR,notEmpty"`

	// Upstream clinical API
	UpstreamCfg UpstreamConfig `envPrefix:"UPSTREAM_"`

	// Auth token persistence
	AuthCfg AuthConfig `envPrefix:"AUTH_"`

	// Realtime refresh channel
	RefreshCfg RefreshConfig `envPrefix:"REFRESH_"`

	// Populate job polling
	PopulateCfg PopulateConfig `envPrefix:"POPULATE_"`

	// Snapshot caching
	CacheCfg CacheConfig `envPrefix:"CACHE_"`

	// Outreach email
	EmailCfg EmailConfig `envPrefix:"EMAIL_"`

	// Per-center analytics
	InactiveThresholdDays int `env:"INACTIVE_THRESHOLD_DAYS" envDefault:"3"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL,notEmpty"`

	// Environment (set from flag, not from env var)
	Environment string
}

// UpstreamConfig points at the remote clinical REST API. BaseURL is the
// service root; dashboard feeds live under the /dashboard prefix while
// the populate endpoints sit at the root.
type UpstreamConfig struct {
	HTTPClientConfig
	Retry pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

// AuthConfig controls bearer-token persistence and optional service
// credentials used for unattended login on startup.
type AuthConfig struct {
	TokenFile       string        `env:"TOKEN_FILE" envDefault:".dashboard-token.json"`
	ServiceEmail    string        `env:"SERVICE_EMAIL"`
	ServicePassword string        `env:"SERVICE_PASSWORD"`
	DefaultTokenTTL time.Duration `env:"DEFAULT_TOKEN_TTL" envDefault:"24h"`
}

// RefreshConfig controls the realtime refresh strategy: a WebSocket
// push channel with bounded connect timeout, falling back to
// fixed-interval polling after reconnect attempts are exhausted.
type RefreshConfig struct {
	WebSocketURL         string        `env:"WS_URL"`
	ConnectTimeout       time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	PollInterval         time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`
	ReconnectBaseDelay   time.Duration `env:"RECONNECT_BASE_DELAY" envDefault:"1s"`
	ReconnectMaxDelay    time.Duration `env:"RECONNECT_MAX_DELAY" envDefault:"30s"`
	ReconnectMaxAttempts int           `env:"RECONNECT_MAX_ATTEMPTS" envDefault:"5"`
}

// PopulateConfig controls the populate job polling loop.
type PopulateConfig struct {
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"3s"`
	MaxPolls     int           `env:"MAX_POLLS" envDefault:"100"`
	SettleDelay  time.Duration `env:"SETTLE_DELAY" envDefault:"2s"`
}

// CacheConfig controls snapshot and session-history TTL caches.
type CacheConfig struct {
	SnapshotTTL time.Duration `env:"SNAPSHOT_TTL" envDefault:"30s"`
	SessionsTTL time.Duration `env:"SESSIONS_TTL" envDefault:"60s"`
}

// EmailConfig configures the SendGrid outreach sender.
type EmailConfig struct {
	SendGridKey string `env:"SENDGRID_KEY"`
	FromEmail   string `env:"FROM_EMAIL" envDefault:"team@perspectives.health"`
	AppName     string `env:"APP_NAME" envDefault:"Perspectives"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"10s"`
	Url                   string        `env:"SERVICE_URL,notEmpty"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	if cfg.PopulateCfg.PollInterval < time.Second {
		errors = append(errors, fmt.Sprintf("POPULATE_POLL_INTERVAL must be at least 1s, got %s", cfg.PopulateCfg.PollInterval))
	}

	if cfg.PopulateCfg.MaxPolls < 1 || cfg.PopulateCfg.MaxPolls > 1000 {
		errors = append(errors, fmt.Sprintf("POPULATE_MAX_POLLS must be between 1 and 1000, got %d", cfg.PopulateCfg.MaxPolls))
	}

	if cfg.RefreshCfg.ReconnectMaxAttempts < 0 {
		errors = append(errors, fmt.Sprintf("REFRESH_RECONNECT_MAX_ATTEMPTS must not be negative, got %d", cfg.RefreshCfg.ReconnectMaxAttempts))
	}

	if cfg.InactiveThresholdDays < 1 || cfg.InactiveThresholdDays > 365 {
		errors = append(errors, fmt.Sprintf("INACTIVE_THRESHOLD_DAYS must be between 1 and 365, got %d", cfg.InactiveThresholdDays))
	}

	if (cfg.AuthCfg.ServiceEmail == "") != (cfg.AuthCfg.ServicePassword == "") {
		errors = append(errors, "AUTH_SERVICE_EMAIL and AUTH_SERVICE_PASSWORD must be set together")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
