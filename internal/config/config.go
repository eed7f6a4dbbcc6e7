// Package config loads the server's process configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config validation errors
var (
	// ErrInvalidPort is returned when Port is empty
	ErrInvalidPort = errors.New("Port is required")
	// ErrMissingSite is returned when no site profile is named
	ErrMissingSite = errors.New("Site is required")
	// ErrInvalidFetchTimeout is returned when FetchTimeout is not positive
	ErrInvalidFetchTimeout = errors.New("FetchTimeout must be positive")
	// ErrInvalidCacheSize is returned when CacheSize is not positive
	ErrInvalidCacheSize = errors.New("CacheSize must be positive")
	// ErrInvalidHostRate is returned when HostRate is negative
	ErrInvalidHostRate = errors.New("HostRate cannot be negative")
	// ErrInvalidRateLimit is returned when the request rate limit is not positive
	ErrInvalidRateLimit = errors.New("rate limit requests and window must be positive")
	// ErrInvalidPostCapacity is returned when PostCapacity is not positive
	ErrInvalidPostCapacity = errors.New("PostCapacity must be positive")
)

// Config holds the server configuration.
type Config struct {
	// Port the HTTP server listens on.
	Port string

	// DatabaseURL enables the persistent embed cache when set.
	DatabaseURL string

	// Site names the profile used to parse posts.
	Site string

	// SitesFile is an optional YAML file of site profiles layered over the
	// built-in ones.
	SitesFile string

	// LogFormat is "json" or "text".
	LogFormat string

	// LogLevel is one of debug, info, warn, error.
	LogLevel slog.Level

	// PostCapacity bounds the in-memory post store.
	PostCapacity int

	Embed EmbedConfig

	// RateLimitRequests per RateLimitWindow per client IP.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// EmbedConfig configures link enrichment.
type EmbedConfig struct {
	// Enabled is the global switch; boards still opt in individually.
	Enabled bool

	// FetchTimeout bounds each metadata request, including time spent
	// waiting for the per-host rate limiter.
	FetchTimeout time.Duration

	// CacheSize is the LRU capacity in results.
	CacheSize int

	UserAgent string

	// HostRate is requests per second per registrable domain; 0 disables
	// pacing.
	HostRate  float64
	HostBurst int

	// TitleMaxGraphemes clamps embed titles; 0 disables the limit.
	TitleMaxGraphemes int

	// YouTubeAPIKey enables YouTube durations.
	YouTubeAPIKey string
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.Port == "" {
		return ErrInvalidPort
	}
	if c.Site == "" {
		return ErrMissingSite
	}
	if c.PostCapacity <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPostCapacity, c.PostCapacity)
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("%w: got %d per %v", ErrInvalidRateLimit, c.RateLimitRequests, c.RateLimitWindow)
	}
	if c.Embed.FetchTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidFetchTimeout, c.Embed.FetchTimeout)
	}
	if c.Embed.CacheSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCacheSize, c.Embed.CacheSize)
	}
	if c.Embed.HostRate < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidHostRate, c.Embed.HostRate)
	}
	return nil
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Port:              "8080",
		Site:              "vichan",
		LogFormat:         "text",
		LogLevel:          slog.LevelInfo,
		PostCapacity:      10000,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		Embed: EmbedConfig{
			Enabled:           true,
			FetchTimeout:      2500 * time.Millisecond,
			CacheSize:         500,
			UserAgent:         "Threadmark/1.0 (+link previews)",
			HostRate:          2,
			HostBurst:         4,
			TitleMaxGraphemes: 100,
		},
	}
}

// ConfigFromEnv creates a Config from environment variables.
// Uses defaults for any missing or invalid environment variables.
//
// Environment variables:
//   - THREADMARK_PORT: listen port (default: 8080)
//   - DATABASE_URL: postgres DSN for the persistent embed cache (default: none)
//   - SITE: site profile name (default: vichan)
//   - SITES_FILE: YAML site profiles (default: built-ins only)
//   - LOG_FORMAT: "json" or "text" (default: text)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - POST_STORE_CAPACITY: posts kept in memory (default: 10000)
//   - EMBED_ENABLED: "true"/"1" to enable, "false"/"0" to disable (default: true)
//   - EMBED_FETCH_TIMEOUT_MS: per-request timeout (default: 2500)
//   - EMBED_CACHE_SIZE: LRU capacity (default: 500)
//   - EMBED_USER_AGENT: User-Agent for metadata requests
//   - EMBED_HOST_RATE: requests per second per domain, 0 to disable (default: 2)
//   - EMBED_HOST_BURST: burst per domain (default: 4)
//   - EMBED_TITLE_MAX_GRAPHEMES: title clamp, 0 to disable (default: 100)
//   - YOUTUBE_API_KEY: enables YouTube durations (default: none)
//   - RATE_LIMIT_REQUESTS: API requests per window per IP (default: 100)
//   - RATE_LIMIT_WINDOW_SECONDS: API rate limit window (default: 60)
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("THREADMARK_PORT"); v != "" {
		cfg.Port = v
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if v := os.Getenv("SITE"); v != "" {
		cfg.Site = v
	}
	cfg.SitesFile = os.Getenv("SITES_FILE")

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err == nil {
			cfg.LogLevel = level
		} else {
			slog.Warn("[CONFIG] invalid LOG_LEVEL value, using default",
				"value", v,
				"default", cfg.LogLevel.String(),
				"error", err,
			)
		}
	}

	envInt("POST_STORE_CAPACITY", &cfg.PostCapacity, 1)

	if v := os.Getenv("EMBED_ENABLED"); v != "" {
		cfg.Embed.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("EMBED_FETCH_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Embed.FetchTimeout = time.Duration(n) * time.Millisecond
		} else {
			slog.Warn("[CONFIG] invalid EMBED_FETCH_TIMEOUT_MS value, using default",
				"value", v,
				"default_ms", cfg.Embed.FetchTimeout.Milliseconds(),
				"error", err,
			)
		}
	}

	envInt("EMBED_CACHE_SIZE", &cfg.Embed.CacheSize, 1)

	if v := os.Getenv("EMBED_USER_AGENT"); v != "" {
		cfg.Embed.UserAgent = v
	}

	if v := os.Getenv("EMBED_HOST_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.Embed.HostRate = f
		} else {
			slog.Warn("[CONFIG] invalid EMBED_HOST_RATE value, using default",
				"value", v,
				"default", cfg.Embed.HostRate,
				"error", err,
			)
		}
	}

	envInt("EMBED_HOST_BURST", &cfg.Embed.HostBurst, 1)
	envInt("EMBED_TITLE_MAX_GRAPHEMES", &cfg.Embed.TitleMaxGraphemes, 0)
	cfg.Embed.YouTubeAPIKey = os.Getenv("YOUTUBE_API_KEY")

	envInt("RATE_LIMIT_REQUESTS", &cfg.RateLimitRequests, 1)
	window := int(cfg.RateLimitWindow / time.Second)
	envInt("RATE_LIMIT_WINDOW_SECONDS", &window, 1)
	cfg.RateLimitWindow = time.Duration(window) * time.Second

	return cfg
}

// envInt overwrites dst with the integer in key when it parses and is at
// least minimum.
func envInt(key string, dst *int, minimum int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < minimum {
		slog.Warn("[CONFIG] invalid "+key+" value, using default",
			"value", v,
			"default", *dst,
			"error", err,
		)
		return
	}
	*dst = n
}
