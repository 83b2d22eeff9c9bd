// Package config loads runtime configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every recognised option. Values come from the process
// environment after godotenv has loaded any .env file.
type Config struct {
	Port        string
	GinMode     string
	DatabaseURL string
	FEOrigin    string

	// Upstream commerce API.
	APIBase   string
	APIKey    string
	MediaBase string

	// Analytics.
	RemoteIngestURL    string
	LocalPrivateKeyPEM string
	LocalPublicKeyPEM  string
	RemotePublicKeyPEM string
	ClientIngestURL    string
	SampleRate         float64
	RequireConsent     bool
	IPHashKey          string
	SlugCacheSize      int
	SlugCacheTTL       time.Duration

	// Staff copied on contact form enquiries.
	ContactRecipients []string

	// Admin access to the stats API.
	JWTSecret         string
	AuthDefault       string
	AdminPasswordHash string

	ClickHouse ClickHouse
	Datadog    Datadog
}

// ClickHouse configures the optional event mirror. An empty Host disables it.
type ClickHouse struct {
	Host       string
	NativePort int
	DBName     string
	Username   string
	Password   string
}

// Datadog configures APM tracing. An empty AgentHost disables it.
type Datadog struct {
	Service   string
	Env       string
	Version   string
	AgentHost string
}

const (
	DefaultMediaBase       = "https://1matrix.io"
	DefaultClientIngestURL = "https://1matrix.io/api/gs-analytics/ingest/"
)

// Load reads environment variables into a Config with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		DatabaseURL: getEnv("DATABASE_URL", "sqlite://globesuggest.db"),
		FEOrigin:    strings.TrimSpace(os.Getenv("FE_ORIGIN")),

		APIBase:   strings.TrimRight(strings.TrimSpace(os.Getenv("GLOBESUGGEST_API_BASE")), "/"),
		APIKey:    strings.TrimSpace(os.Getenv("GLOBESUGGEST_API_KEY")),
		MediaBase: strings.TrimRight(getEnv("GLOBESUGGEST_MEDIA_BASE", DefaultMediaBase), "/"),

		RemoteIngestURL:    getEnv("ANALYTICS_REMOTE_INGEST_URL", strings.TrimSpace(os.Getenv("ANALYTICS_INGEST_URL"))),
		LocalPrivateKeyPEM: os.Getenv("ANALYTICS_LOCAL_PRIVATE_KEY_PEM"),
		LocalPublicKeyPEM:  os.Getenv("ANALYTICS_LOCAL_PUBLIC_KEY_PEM"),
		RemotePublicKeyPEM: os.Getenv("ANALYTICS_REMOTE_PUBLIC_KEY_PEM"),
		ClientIngestURL:    getEnv("ANALYTICS_INGEST_URL", DefaultClientIngestURL),
		IPHashKey:          strings.TrimSpace(os.Getenv("IP_HASH_KEY")),

		ContactRecipients: splitList(os.Getenv("CONTACT_RECIPIENT_EMAILS")),

		JWTSecret:         strings.TrimSpace(os.Getenv("JWT_SECRET_KEY")),
		AuthDefault:       strings.TrimSpace(os.Getenv("AUTH_DEFAULT")),
		AdminPasswordHash: strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH")),

		ClickHouse: ClickHouse{
			Host:     strings.TrimSpace(os.Getenv("CLICKHOUSE_HOST")),
			DBName:   getEnv("CLICKHOUSE_DB_NAME", "default"),
			Username: strings.TrimSpace(os.Getenv("CLICKHOUSE_USERNAME")),
			Password: os.Getenv("CLICKHOUSE_PASSWORD"),
		},
		Datadog: Datadog{
			Service:   getEnv("DD_SERVICE", "globesuggest-api"),
			Env:       getEnv("DD_ENV", "development"),
			Version:   getEnv("DD_VERSION", "1.0.0"),
			AgentHost: strings.TrimSpace(os.Getenv("DD_AGENT_HOST")),
		},
	}

	var err error
	if cfg.SampleRate, err = parseFloatEnv("ANALYTICS_SAMPLE_RATE", 1.0); err != nil {
		return Config{}, fmt.Errorf("parse ANALYTICS_SAMPLE_RATE: %w", err)
	}
	if cfg.RequireConsent, err = parseBoolEnv("ANALYTICS_REQUIRE_CONSENT", false); err != nil {
		return Config{}, fmt.Errorf("parse ANALYTICS_REQUIRE_CONSENT: %w", err)
	}
	if cfg.SlugCacheSize, err = parseIntEnv("SLUG_CACHE_SIZE", 1024); err != nil {
		return Config{}, fmt.Errorf("parse SLUG_CACHE_SIZE: %w", err)
	}
	if cfg.SlugCacheTTL, err = parseDurationEnv("SLUG_CACHE_TTL", 15*time.Minute); err != nil {
		return Config{}, fmt.Errorf("parse SLUG_CACHE_TTL: %w", err)
	}
	if cfg.ClickHouse.NativePort, err = parseIntEnv("CLICKHOUSE_NATIVE_PORT", 9000); err != nil {
		return Config{}, fmt.Errorf("invalid CLICKHOUSE_NATIVE_PORT: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures required fields are present and values are in range.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("ANALYTICS_SAMPLE_RATE must be within [0,1], got %v", c.SampleRate)
	}
	if c.SlugCacheSize < 0 {
		return errors.New("SLUG_CACHE_SIZE must not be negative")
	}
	if c.MediaBase != "" && !strings.HasPrefix(c.MediaBase, "http://") && !strings.HasPrefix(c.MediaBase, "https://") {
		return fmt.Errorf("GLOBESUGGEST_MEDIA_BASE must be an absolute http(s) URL, got %q", c.MediaBase)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func parseBoolEnv(key string, defaultVal bool) (bool, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(val)
}

func parseFloatEnv(key string, defaultVal float64) (float64, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(val, 64)
}

func parseIntEnv(key string, defaultVal int) (int, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(val)
}

func parseDurationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(val)
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
