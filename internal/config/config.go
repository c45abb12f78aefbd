package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Mailbox
	EmailServer      string
	EmailPort        int
	EmailUsername    string
	EmailPassword    string
	EmailMailbox     string
	IMAPTimeout      time.Duration
	FetchMaxAttempts int
	FetchRetryDelay  time.Duration

	// Server
	APIPort int

	// Storage
	PDFStoragePath string

	// Presentation
	DisplayTimezone string
	EmailsPerPage   int

	// Logging
	LogLevel string

	// Security
	BasicAuthUsername string
	BasicAuthPassword string
	AllowedOrigins    string
	AppEnv            string

	// Rate Limiting
	RateLimitRequests float64
	RateLimitBurst    int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// Required: DATABASE_URL
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}

	// Required: mailbox credentials
	cfg.EmailServer = os.Getenv("EMAIL_SERVER")
	cfg.EmailUsername = os.Getenv("EMAIL_USERNAME")
	cfg.EmailPassword = os.Getenv("EMAIL_PASSWORD")
	var missing []string
	for _, kv := range [][2]string{
		{"EMAIL_SERVER", cfg.EmailServer},
		{"EMAIL_USERNAME", cfg.EmailUsername},
		{"EMAIL_PASSWORD", cfg.EmailPassword},
	} {
		if kv[1] == "" {
			missing = append(missing, kv[0])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s required but not set", strings.Join(missing, ", "))
	}

	if cfg.EmailPort, err = intEnv("EMAIL_PORT", 993); err != nil {
		return nil, err
	}
	cfg.EmailMailbox = stringEnv("EMAIL_MAILBOX", "INBOX")
	if cfg.IMAPTimeout, err = durationEnv("IMAP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchMaxAttempts, err = intEnv("FETCH_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.FetchRetryDelay, err = durationEnv("FETCH_RETRY_DELAY", 2*time.Second); err != nil {
		return nil, err
	}

	// API_PORT (default: 5000)
	if cfg.APIPort, err = intEnv("API_PORT", 5000); err != nil {
		return nil, err
	}

	cfg.PDFStoragePath = stringEnv("PDF_STORAGE_PATH", "./attachments")
	cfg.DisplayTimezone = stringEnv("DISPLAY_TIMEZONE", "Europe/Budapest")
	if cfg.EmailsPerPage, err = intEnv("EMAILS_PER_PAGE", 10); err != nil {
		return nil, err
	}

	cfg.LogLevel = stringEnv("LOG_LEVEL", "info")

	// Security configuration
	cfg.BasicAuthUsername = os.Getenv("BASIC_AUTH_USERNAME")
	cfg.BasicAuthPassword = os.Getenv("BASIC_AUTH_PASSWORD")
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")
	cfg.AppEnv = stringEnv("APP_ENV", "development")

	// Rate limiting configuration
	if rps := os.Getenv("RATE_LIMIT_REQUESTS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimitRequests = v
		}
	} else {
		cfg.RateLimitRequests = 10.0
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimitBurst = v
		}
	} else {
		cfg.RateLimitBurst = 20
	}

	return cfg, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

// durationEnv accepts Go durations ("45s") or a bare number of seconds
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Production-specific validation
	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if c.EmailServer == "" || c.EmailUsername == "" || c.EmailPassword == "" {
		return fmt.Errorf("EmailServer, EmailUsername and EmailPassword cannot be empty")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if c.EmailPort <= 0 || c.EmailPort > 65535 {
		return fmt.Errorf("EmailPort must be between 1 and 65535")
	}
	if c.IMAPTimeout <= 0 {
		return fmt.Errorf("IMAPTimeout must be positive")
	}
	if c.FetchMaxAttempts < 1 {
		return fmt.Errorf("FetchMaxAttempts must be at least 1")
	}
	if c.FetchRetryDelay < 0 {
		return fmt.Errorf("FetchRetryDelay cannot be negative")
	}
	if c.EmailsPerPage < 1 {
		return fmt.Errorf("EmailsPerPage must be at least 1")
	}
	if c.PDFStoragePath == "" {
		return fmt.Errorf("PDFStoragePath cannot be empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if (c.BasicAuthUsername == "") != (c.BasicAuthPassword == "") {
		return fmt.Errorf("BASIC_AUTH_USERNAME and BASIC_AUTH_PASSWORD must be set together")
	}
	return nil
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.BasicAuthUsername == "" {
		return fmt.Errorf("BASIC_AUTH_USERNAME is required in production")
	}

	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	// Check for wildcard in production
	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("wildcard (*) origins are not allowed in production")
	}

	// Check for sslmode=disable in database URL
	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}

	return nil
}

// Location resolves DisplayTimezone
func (c *Config) Location() (*time.Location, error) {
	if c.DisplayTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return nil, fmt.Errorf("DISPLAY_TIMEZONE %q is not a known zone: %w", c.DisplayTimezone, err)
	}
	return loc, nil
}

// Origins splits AllowedOrigins into its entries
func (c *Config) Origins() []string {
	if c.AllowedOrigins == "" {
		return nil
	}
	return strings.Split(c.AllowedOrigins, ",")
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.Int("api_port", c.APIPort),
		slog.String("email_server", c.EmailServer),
		slog.Int("email_port", c.EmailPort),
		slog.String("email_username", c.EmailUsername),
		slog.String("email_mailbox", c.EmailMailbox),
		slog.Duration("imap_timeout", c.IMAPTimeout),
		slog.Int("fetch_max_attempts", c.FetchMaxAttempts),
		slog.Duration("fetch_retry_delay", c.FetchRetryDelay),
		slog.String("storage_path", c.PDFStoragePath),
		slog.String("display_timezone", c.DisplayTimezone),
		slog.Int("emails_per_page", c.EmailsPerPage),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("basic_auth_set", c.BasicAuthUsername != ""),
		slog.Bool("allowed_origins_set", c.AllowedOrigins != ""),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
	)
}
