// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.prepwise/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Backend: client-side API endpoint and timeouts
//   - AI: interviewer model selection, temperature, max tokens
//   - Storage: PostgreSQL connection (see storage.go)
//   - Blob: S3-compatible audio storage (see blob.go)
//   - Serve: HTTP listen address and rate limits
//
// Security: sensitive data (passwords, keys) is never logged; the config
// directory uses 0750 permissions.
//
// Error handling uses sentinel errors checked with errors.Is(), wrapped with
// context via fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidBackendURL indicates the backend URL is invalid.
	ErrInvalidBackendURL = errors.New("invalid backend URL")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidBlobConfig indicates the blob storage configuration is incomplete.
	ErrInvalidBlobConfig = errors.New("invalid blob storage configuration")

	// ErrInvalidListenAddr indicates the serve listen address is invalid.
	ErrInvalidListenAddr = errors.New("invalid listen address")
)

const (
	// DefaultModelName is the interviewer model used when no override is set.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultBackendURL points at a locally running `prepwise serve`.
	DefaultBackendURL = "http://localhost:8080"

	// DefaultRequestTimeout bounds every client API call. Audio uploads and
	// AI generation dominate latency, so this is generous.
	DefaultRequestTimeout = 60 * time.Second
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// Client-side backend endpoint
	BackendURL     string        `mapstructure:"backend_url" json:"backend_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`

	// AI interviewer configuration
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // e.g. "gemini-2.5-flash"
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Blob storage configuration (see blob.go for type definition)
	Blob BlobConfig `mapstructure:"blob" json:"blob"`

	// Serve mode configuration
	ListenAddr     string  `mapstructure:"listen_addr" json:"listen_addr"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`
	TrustProxy     bool    `mapstructure:"trust_proxy" json:"trust_proxy"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	// Configuration directory: ~/.prepwise/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".prepwise")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL wins over individual postgres_* settings
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Client defaults
	viper.SetDefault("backend_url", DefaultBackendURL)
	viper.SetDefault("request_timeout", DefaultRequestTimeout)

	// AI defaults
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 2048)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "prepwise")
	viper.SetDefault("postgres_password", "prepwise_dev_password")
	viper.SetDefault("postgres_db_name", "prepwise")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Blob storage defaults (MinIO dev instance)
	viper.SetDefault("blob.endpoint", "http://localhost:9000")
	viper.SetDefault("blob.region", "us-east-1")
	viper.SetDefault("blob.bucket", "prepwise-audio")
	viper.SetDefault("blob.url_expiry", 15*time.Minute)
	viper.SetDefault("blob.use_path_style", true)

	// Serve defaults
	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("rate_limit_rps", 10.0)
	viper.SetDefault("rate_limit_burst", 20)
	viper.SetDefault("trust_proxy", false)
}

// bindEnvVariables binds environment variables explicitly.
//
// Secrets come from the environment only:
//  1. GEMINI_API_KEY - read directly by the genai client, presence validated
//     in cfg.Validate() (serve mode)
//  2. PREPWISE_BLOB_ACCESS_KEY / PREPWISE_BLOB_SECRET_KEY - S3 credentials
//  3. DATABASE_URL - parsed separately in parseDatabaseURL
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("backend_url", "PREPWISE_BACKEND_URL")
	mustBind("model_name", "PREPWISE_MODEL_NAME")
	mustBind("listen_addr", "PREPWISE_LISTEN_ADDR")

	mustBind("blob.endpoint", "PREPWISE_BLOB_ENDPOINT")
	mustBind("blob.bucket", "PREPWISE_BLOB_BUCKET")
	mustBind("blob.access_key", "PREPWISE_BLOB_ACCESS_KEY")
	mustBind("blob.secret_key", "PREPWISE_BLOB_SECRET_KEY")

	// NOTE: GEMINI_API_KEY is read directly by the genai client, not via
	// Viper. Validation checks its presence in serve mode.
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid substring matching against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 chars or
// fewer are fully masked; longer ones keep the first and last 2 characters
// for debug utility.
//
// This defends against accidental logging of real secrets. It is not
// cryptographically secure; if logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - Blob.SecretKey (via BlobConfig.MarshalJSON)
//
// When adding new sensitive fields, update this method or the nested struct's
// MarshalJSON.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
