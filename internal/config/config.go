package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"invoice-studio/internal/logger"
)

// Config is read from the environment once at start-up. Call godotenv.Load
// before Load so a local .env file is honoured.
type Config struct {
	DatabaseURL    string
	ServerPort     string
	AllowedOrigins string
	JWTSecret      string
	AutoMigrate    bool

	OpenAIAPIKey string

	PDFBackend  string // chrome or fpdf
	ChromePath  string
	PDFTimeout  time.Duration
	PDFFontPath string
	// PDFConcurrency caps simultaneous Chrome conversions.
	PDFConcurrency int64

	ArchiveBucket string
	ArchiveRegion string
	ArchivePrefix string

	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the environment and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		PDFBackend:     strings.ToLower(getEnv("PDF_BACKEND", "fpdf")),
		ChromePath:     getEnv("CHROME_PATH", ""),
		PDFFontPath:    getEnv("PDF_FONT_PATH", ""),
		ArchiveBucket:  getEnv("ARCHIVE_BUCKET", ""),
		ArchiveRegion:  getEnv("ARCHIVE_REGION", "us-east-1"),
		ArchivePrefix:  getEnv("ARCHIVE_PREFIX", "invoices"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:  getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:      getEnv("LOG_OUTPUT", "stdout"),
	}

	timeout, err := time.ParseDuration(getEnv("PDF_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PDF_TIMEOUT: %w", err)
	}
	cfg.PDFTimeout = timeout

	concurrency, err := strconv.ParseInt(getEnv("PDF_CONCURRENCY", "2"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PDF_CONCURRENCY: %w", err)
	}
	cfg.PDFConcurrency = concurrency

	autoMigrate, err := strconv.ParseBool(getEnv("AUTO_MIGRATE", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_MIGRATE: %w", err)
	}
	cfg.AutoMigrate = autoMigrate

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.PDFBackend {
	case "chrome", "fpdf":
	default:
		return fmt.Errorf("PDF_BACKEND must be chrome or fpdf, got %q", c.PDFBackend)
	}
	if c.PDFTimeout <= 0 {
		return fmt.Errorf("PDF_TIMEOUT must be positive")
	}
	if c.PDFConcurrency < 1 {
		return fmt.Errorf("PDF_CONCURRENCY must be at least 1")
	}
	return nil
}

// ValidateServer checks the settings only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	return nil
}

// ArchiveEnabled reports whether generated PDFs are uploaded.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != ""
}

// GetLoggerConfig returns the logger settings.
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
