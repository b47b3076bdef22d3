package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Voice backend configuration
	Backend BackendConfig

	// JWT configuration
	JWT JWTConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// Realtime event stream configuration
	Realtime RealtimeConfig

	// Lead intake configuration
	Leads LeadsConfig

	// Logging configuration
	Logging LoggingConfig

	// Telemetry configuration
	Telemetry TelemetryConfig

	// Application metadata
	App AppConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// BackendConfig holds voice-backend connection configuration.
// URL covers both REST calls and the live-call WebSocket stream; the
// WebSocket scheme (ws/wss) is derived from the URL's http/https scheme.
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// JWTConfig holds token verification configuration. Exactly one of
// Secret (HS256) or JWKSURL (provider-published keys) must be set.
type JWTConfig struct {
	Secret  string
	JWKSURL string
	Issuer  string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	LeadRPS           float64 // Stricter limit for the public lead endpoint
	LeadBurst         int
}

// RealtimeConfig holds upstream event-stream configuration
type RealtimeConfig struct {
	TrackingID         string
	ReconnectBaseDelay time.Duration
	ReconnectCeiling   int
}

// LeadsConfig holds lead intake configuration
type LeadsConfig struct {
	DedupWindow        time.Duration
	DefaultPhoneRegion string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled  bool
	Exporter string // stdout, otlp
	Endpoint string
	Insecure bool
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("PORT", ":8080"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("ALLOWED_ORIGINS", []string{}),
		},
		Backend: BackendConfig{
			URL:     os.Getenv("BACKEND_URL"),
			Timeout: getDurationOrDefault("BACKEND_TIMEOUT", 10*time.Second),
		},
		JWT: JWTConfig{
			Secret:  os.Getenv("JWT_SECRET"),
			JWKSURL: os.Getenv("JWKS_URL"),
			Issuer:  os.Getenv("JWT_ISSUER"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolOrDefault("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getFloatOrDefault("RATE_LIMIT_RPS", 10),
			BurstSize:         getIntOrDefault("RATE_LIMIT_BURST", 20),
			LeadRPS:           getFloatOrDefault("RATE_LIMIT_LEAD_RPS", 1),
			LeadBurst:         getIntOrDefault("RATE_LIMIT_LEAD_BURST", 5),
		},
		Realtime: RealtimeConfig{
			TrackingID:         os.Getenv("WS_TRACKING_ID"),
			ReconnectBaseDelay: getDurationOrDefault("RECONNECT_BASE_DELAY", time.Second),
			ReconnectCeiling:   getIntOrDefault("RECONNECT_CEILING", 15),
		},
		Leads: LeadsConfig{
			DedupWindow:        getDurationOrDefault("LEAD_DEDUP_WINDOW", 24*time.Hour),
			DefaultPhoneRegion: getEnvOrDefault("DEFAULT_PHONE_REGION", "US"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Telemetry: TelemetryConfig{
			Enabled:  getBoolOrDefault("OTEL_ENABLED", false),
			Exporter: getEnvOrDefault("OTEL_EXPORTER", "stdout"),
			Endpoint: os.Getenv("OTEL_ENDPOINT"),
			Insecure: getBoolOrDefault("OTEL_INSECURE", true),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "voxanne-console"),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	// Required fields
	if c.Backend.URL == "" {
		errs = append(errs, "BACKEND_URL is required")
	} else if u, err := url.Parse(c.Backend.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, "BACKEND_URL must be an http or https URL")
	}

	// Exactly one token verification mode
	switch {
	case c.JWT.Secret == "" && c.JWT.JWKSURL == "":
		errs = append(errs, "one of JWT_SECRET or JWKS_URL is required")
	case c.JWT.Secret != "" && c.JWT.JWKSURL != "":
		errs = append(errs, "JWT_SECRET and JWKS_URL are mutually exclusive")
	}

	// Security validations
	if c.App.Environment == "production" {
		if c.JWT.Secret != "" && len(c.JWT.Secret) < 32 {
			errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
		}

		if len(c.Server.AllowedOrigins) == 0 {
			errs = append(errs, "ALLOWED_ORIGINS must be set in production")
		}
	}

	// Logical validations
	if c.Realtime.ReconnectCeiling < 1 {
		errs = append(errs, "RECONNECT_CEILING must be at least 1")
	}

	if c.Telemetry.Enabled && c.Telemetry.Exporter != "stdout" && c.Telemetry.Exporter != "otlp" {
		errs = append(errs, "OTEL_EXPORTER must be stdout or otlp")
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, Backend: %s, JWT: [REDACTED], RateLimit: %v, Environment: %s}",
		c.Server.Port,
		c.Backend.URL,
		c.RateLimit.Enabled,
		c.App.Environment,
	)
}
