package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Togather-Foundation/campus/internal/validation"
)

// Credential store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	API         APIConfig         `yaml:"api"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Logging     LoggingConfig     `yaml:"logging"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Stub        StubConfig        `yaml:"stub"`
}

type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Retries   int           `yaml:"retries"`
	UserAgent string        `yaml:"user_agent"`
}

type CredentialsConfig struct {
	Backend    string      `yaml:"backend"`
	File       string      `yaml:"file"` // empty = user config dir
	SQLitePath string      `yaml:"sqlite_path"`
	Redis      RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Namespace string `yaml:"namespace"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // stdout, otlp or none
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// StubConfig configures the development API server.
type StubConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	JWTSecret     string        `yaml:"jwt_secret"`
	JWTExpiry     time.Duration `yaml:"jwt_expiry"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPassword string        `yaml:"admin_password"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL:   "http://localhost:5000/api",
			Timeout:   15 * time.Second,
			UserAgent: "campus-cli/1.0",
		},
		Credentials: CredentialsConfig{
			Backend: BackendFile,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				Namespace: "campus",
			},
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		Tracing: TracingConfig{
			Exporter:     "stdout",
			ServiceName:  "campus",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Stub: StubConfig{
			Host:      "127.0.0.1",
			Port:      5000,
			JWTSecret: "campus-development-secret-do-not-deploy",
			JWTExpiry: 24 * time.Hour,
		},
	}
}

// Load builds the configuration from defaults, then the optional YAML file
// at path, then environment variables. Command-line flags are applied on top
// by the caller.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.API.BaseURL = getEnv("CAMPUS_API_URL", cfg.API.BaseURL)
	cfg.API.Timeout = getEnvDuration("CAMPUS_HTTP_TIMEOUT", cfg.API.Timeout)
	cfg.API.RateLimit = getEnvFloat("CAMPUS_RATE_LIMIT", cfg.API.RateLimit)
	cfg.API.Retries = getEnvInt("CAMPUS_RETRIES", cfg.API.Retries)

	cfg.Credentials.Backend = getEnv("CAMPUS_CREDENTIAL_BACKEND", cfg.Credentials.Backend)
	cfg.Credentials.File = getEnv("CAMPUS_CREDENTIAL_FILE", cfg.Credentials.File)
	cfg.Credentials.SQLitePath = getEnv("CAMPUS_CREDENTIAL_SQLITE", cfg.Credentials.SQLitePath)
	cfg.Credentials.Redis.Addr = getEnv("CAMPUS_REDIS_ADDR", cfg.Credentials.Redis.Addr)
	cfg.Credentials.Redis.Password = getEnv("CAMPUS_REDIS_PASSWORD", cfg.Credentials.Redis.Password)
	cfg.Credentials.Redis.DB = getEnvInt("CAMPUS_REDIS_DB", cfg.Credentials.Redis.DB)
	cfg.Credentials.Redis.Namespace = getEnv("CAMPUS_REDIS_NAMESPACE", cfg.Credentials.Redis.Namespace)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.Tracing.Enabled = getEnvBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = getEnv("TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.OTLPEndpoint = getEnv("TRACING_OTLP_ENDPOINT", cfg.Tracing.OTLPEndpoint)
	cfg.Tracing.SampleRate = getEnvFloat("TRACING_SAMPLE_RATE", cfg.Tracing.SampleRate)

	cfg.Stub.Host = getEnv("STUB_HOST", cfg.Stub.Host)
	cfg.Stub.Port = getEnvInt("STUB_PORT", cfg.Stub.Port)
	cfg.Stub.JWTSecret = getEnv("STUB_JWT_SECRET", cfg.Stub.JWTSecret)
	cfg.Stub.AdminEmail = getEnv("STUB_ADMIN_EMAIL", cfg.Stub.AdminEmail)
	cfg.Stub.AdminPassword = getEnv("STUB_ADMIN_PASSWORD", cfg.Stub.AdminPassword)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := validation.ValidateAPIURL(c.API.BaseURL, "CAMPUS_API_URL"); err != nil {
		return err
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("CAMPUS_HTTP_TIMEOUT must be positive, got %s", c.API.Timeout)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("CAMPUS_RATE_LIMIT must not be negative, got %g", c.API.RateLimit)
	}
	if c.API.Retries < 0 {
		return fmt.Errorf("CAMPUS_RETRIES must not be negative, got %d", c.API.Retries)
	}

	switch c.Credentials.Backend {
	case BackendFile, BackendMemory:
	case BackendSQLite:
		if c.Credentials.SQLitePath == "" {
			return fmt.Errorf("CAMPUS_CREDENTIAL_SQLITE is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Credentials.Redis.Addr == "" {
			return fmt.Errorf("CAMPUS_REDIS_ADDR is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown CAMPUS_CREDENTIAL_BACKEND %q (must be file, sqlite, redis or memory)", c.Credentials.Backend)
	}

	if f := strings.ToLower(c.Logging.Format); f != "json" && f != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}

	if c.Tracing.SampleRate < 0.0 || c.Tracing.SampleRate > 1.0 {
		return fmt.Errorf("TRACING_SAMPLE_RATE must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvDuration accepts Go durations ("30s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
