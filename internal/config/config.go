// Package config loads and validates the gateway configuration from
// environment variables, with optional .env file support.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"enrichment-gateway/internal/common/errors"
	"enrichment-gateway/internal/token"
)

// ServiceConfig holds the credentials and endpoints of one backing API.
type ServiceConfig struct {
	ClientID     string
	ClientSecret string
	APIBaseURL   string
	OAuthURL     string
}

// TokenConfig converts to the token cache's service descriptor.
func (s ServiceConfig) TokenConfig() token.ServiceConfig {
	return token.ServiceConfig{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		APIBaseURL:   s.APIBaseURL,
		OAuthURL:     s.OAuthURL,
	}
}

// PollConfig bounds one service's job polling loop.
type PollConfig struct {
	MaxAttempts int
	Interval    time.Duration
}

// Config holds the complete gateway configuration.
type Config struct {
	Port        string
	HTTPTimeout time.Duration
	LogLevel    string

	Enrichment ServiceConfig
	Curation   ServiceConfig

	MaxRetries int
	RetryDelay time.Duration

	// TokenCacheTTL switches the token cache to fixed-TTL expiry when
	// set; zero means honor the server-reported expires_in
	TokenCacheTTL time.Duration

	EnrichmentPoll PollConfig
	CurationPoll   PollConfig

	// ResultStoreBackend selects where pending result handles live:
	// "memory" or "redis"
	ResultStoreBackend string
	RedisAddress       string
	RedisPassword      string
	RedisDB            int
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		HTTPTimeout: getDuration("HTTP_TIMEOUT", 60*time.Second),
		LogLevel:    getEnv("LOG_LEVEL", "INFO"),

		Enrichment: ServiceConfig{
			ClientID:     os.Getenv("ENRICHMENT_CLIENT_ID"),
			ClientSecret: os.Getenv("ENRICHMENT_CLIENT_SECRET"),
			APIBaseURL:   os.Getenv("ENRICHMENT_API_URL"),
			OAuthURL:     os.Getenv("ENRICHMENT_OAUTH_URL"),
		},
		Curation: ServiceConfig{
			ClientID:     os.Getenv("CURATION_CLIENT_ID"),
			ClientSecret: os.Getenv("CURATION_CLIENT_SECRET"),
			APIBaseURL:   os.Getenv("CURATION_API_URL"),
			OAuthURL:     os.Getenv("CURATION_OAUTH_URL"),
		},

		MaxRetries:    getInt("MAX_RETRIES", 3),
		RetryDelay:    getDuration("RETRY_DELAY", time.Second),
		TokenCacheTTL: getDuration("TOKEN_CACHE_TTL", 0),

		EnrichmentPoll: PollConfig{
			MaxAttempts: getInt("ENRICHMENT_POLL_ATTEMPTS", 30),
			Interval:    getDuration("ENRICHMENT_POLL_INTERVAL", 2*time.Second),
		},
		CurationPoll: PollConfig{
			MaxAttempts: getInt("CURATION_POLL_ATTEMPTS", 60),
			Interval:    getDuration("CURATION_POLL_INTERVAL", 5*time.Second),
		},

		ResultStoreBackend: getEnv("RESULT_STORE_BACKEND", "memory"),
		RedisAddress:       getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getInt("REDIS_DB", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies that would only
// surface later as confusing runtime failures.
func (c *Config) Validate() error {
	if err := c.Enrichment.validate("ENRICHMENT"); err != nil {
		return err
	}
	if err := c.Curation.validate("CURATION"); err != nil {
		return err
	}

	if c.MaxRetries <= 0 {
		return errors.ConfigError("MAX_RETRIES must be positive")
	}
	if c.RetryDelay <= 0 {
		return errors.ConfigError("RETRY_DELAY must be positive")
	}
	if c.EnrichmentPoll.MaxAttempts <= 0 || c.CurationPoll.MaxAttempts <= 0 {
		return errors.ConfigError("poll attempts must be positive")
	}
	if c.EnrichmentPoll.Interval <= 0 || c.CurationPoll.Interval <= 0 {
		return errors.ConfigError("poll intervals must be positive")
	}

	switch c.ResultStoreBackend {
	case "memory":
	case "redis":
		if c.RedisAddress == "" {
			return errors.ConfigError("REDIS_ADDRESS is required for the redis result store")
		}
	default:
		return errors.ConfigError(fmt.Sprintf("unknown result store backend %q", c.ResultStoreBackend))
	}

	return nil
}

func (s ServiceConfig) validate(prefix string) error {
	if s.ClientID == "" {
		return errors.ConfigError(prefix + "_CLIENT_ID is required")
	}
	if s.ClientSecret == "" {
		return errors.ConfigError(prefix + "_CLIENT_SECRET is required")
	}
	if s.APIBaseURL == "" {
		return errors.ConfigError(prefix + "_API_URL is required")
	}
	if s.OAuthURL == "" {
		return errors.ConfigError(prefix + "_OAUTH_URL is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

// getDuration accepts Go duration strings ("30s") and falls back to
// interpreting a bare number as seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
