package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string // "development", "production", etc.

	// Server
	ServerAddr  string
	BaseURL     string // Public URL, used in alert emails
	SiteTitle   string
	CORSOrigins string // Comma-separated allowed origins
	RateLimit   int    // Turns per minute per chatting user on the skill endpoint

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseURL    string // File path for sqlite, DSN for postgres

	// Crawling
	CrawlInterval   time.Duration
	CrawlAt         string // Optional "HH:MM" daily run time, overrides CrawlInterval
	CrawlOnStart    bool
	FetchTimeout    time.Duration
	BrowserTimeout  time.Duration
	BrowserBin      string // Chromium binary; empty lets the launcher download one
	BrowserHeadless bool
	TriggerSecret   string // HMAC key for POST /admin/crawl

	// Image extraction
	OCRProvider    string // "openai" or "none"
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	OCRQuotaLimit  int
	OCRQuotaWindow string // "month" or "day"
	OCRTimeout     time.Duration

	// Sessions
	RedisURL           string
	SessionIdleTimeout time.Duration // 0 keeps sessions for the process lifetime

	// Lookup
	SimilarMode string // "first" or "ranked"

	// Snapshot archive
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	// Email
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      string // "none", "tls", "starttls"
	AlertEmails  []string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Env:         getEnv("ENV", "development"),
		ServerAddr:  getEnv("SERVER_ADDR", ":5000"),
		BaseURL:     strings.TrimRight(getEnv("BASE_URL", "http://localhost:5000"), "/"),
		SiteTitle:   getEnv("SITE_TITLE", "식품 검사 안내 챗봇"),
		CORSOrigins: getEnv("CORS_ORIGINS", ""),
		RateLimit:   getEnvInt("RATE_LIMIT", 30),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", "data/chatbot.db"),

		CrawlInterval:   getEnvDuration("CRAWL_INTERVAL", 24*time.Hour),
		CrawlAt:         getEnv("CRAWL_AT", ""),
		CrawlOnStart:    getEnvBool("CRAWL_ON_START", true),
		FetchTimeout:    getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		BrowserTimeout:  getEnvDuration("BROWSER_TIMEOUT", 30*time.Second),
		BrowserBin:      getEnv("BROWSER_BIN", ""),
		BrowserHeadless: getEnvBool("BROWSER_HEADLESS", true),
		TriggerSecret:   getEnv("TRIGGER_SECRET", ""),

		OCRProvider:    getEnv("OCR_PROVIDER", ""),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		OCRQuotaLimit:  getEnvInt("OCR_QUOTA_LIMIT", 100),
		OCRQuotaWindow: getEnv("OCR_QUOTA_WINDOW", "month"),
		OCRTimeout:     getEnvDuration("OCR_TIMEOUT", 15*time.Second),

		RedisURL:           getEnv("REDIS_URL", ""),
		SessionIdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", 0),

		SimilarMode: getEnv("SIMILAR_MODE", "first"),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "crawl-snapshots"),
		MinIOUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Inspection Bot"),
		SMTPTLS:      getEnv("SMTP_TLS", "starttls"),
		AlertEmails:  splitList(getEnv("ALERT_EMAILS", "")),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// IsPostgres returns true when the lookup store lives in Postgres.
func (c *Config) IsPostgres() bool {
	return c.DatabaseDriver == "postgres" || c.DatabaseDriver == "pgx"
}

// IsEmailEnabled returns true if SMTP is configured.
func (c *Config) IsEmailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// IsArchiveEnabled returns true if the snapshot archive is configured.
func (c *Config) IsArchiveEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

// IsOCREnabled returns true if an image extraction backend is configured.
func (c *Config) IsOCREnabled() bool {
	return c.OCRProvider == "openai" && c.OpenAIAPIKey != ""
}

// DailyRunTime parses CrawlAt. ok is false when unset or malformed.
func (c *Config) DailyRunTime() (hour, minute int, ok bool) {
	if c.CrawlAt == "" {
		return 0, 0, false
	}
	t, err := time.Parse("15:04", c.CrawlAt)
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}
