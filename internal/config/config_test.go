package config

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "valid default config",
			mutate:  func(*Config) {},
			wantErr: nil,
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Port = "" },
			wantErr: ErrInvalidPort,
		},
		{
			name:    "missing site",
			mutate:  func(c *Config) { c.Site = "" },
			wantErr: ErrMissingSite,
		},
		{
			name:    "zero fetch timeout",
			mutate:  func(c *Config) { c.Embed.FetchTimeout = 0 },
			wantErr: ErrInvalidFetchTimeout,
		},
		{
			name:    "zero cache size",
			mutate:  func(c *Config) { c.Embed.CacheSize = 0 },
			wantErr: ErrInvalidCacheSize,
		},
		{
			name:    "negative host rate",
			mutate:  func(c *Config) { c.Embed.HostRate = -1 },
			wantErr: ErrInvalidHostRate,
		},
		{
			name:    "zero host rate disables pacing",
			mutate:  func(c *Config) { c.Embed.HostRate = 0 },
			wantErr: nil,
		},
		{
			name:    "zero rate limit window",
			mutate:  func(c *Config) { c.RateLimitWindow = 0 },
			wantErr: ErrInvalidRateLimit,
		},
		{
			name:    "zero post capacity",
			mutate:  func(c *Config) { c.PostCapacity = 0 },
			wantErr: ErrInvalidPostCapacity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("THREADMARK_PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/threadmark")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("EMBED_ENABLED", "false")
	t.Setenv("EMBED_FETCH_TIMEOUT_MS", "1000")
	t.Setenv("EMBED_CACHE_SIZE", "42")
	t.Setenv("EMBED_HOST_RATE", "0.5")
	t.Setenv("EMBED_TITLE_MAX_GRAPHEMES", "0")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "30")

	cfg := ConfigFromEnv()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://localhost/threadmark" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.Embed.Enabled {
		t.Error("Embed.Enabled = true, want false")
	}
	if cfg.Embed.FetchTimeout != time.Second {
		t.Errorf("FetchTimeout = %v, want 1s", cfg.Embed.FetchTimeout)
	}
	if cfg.Embed.CacheSize != 42 {
		t.Errorf("CacheSize = %d, want 42", cfg.Embed.CacheSize)
	}
	if cfg.Embed.HostRate != 0.5 {
		t.Errorf("HostRate = %v, want 0.5", cfg.Embed.HostRate)
	}
	if cfg.Embed.TitleMaxGraphemes != 0 {
		t.Errorf("TitleMaxGraphemes = %d, want 0", cfg.Embed.TitleMaxGraphemes)
	}
	if cfg.RateLimitWindow != 30*time.Second {
		t.Errorf("RateLimitWindow = %v, want 30s", cfg.RateLimitWindow)
	}
}

func TestConfigFromEnv_InvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("EMBED_FETCH_TIMEOUT_MS", "soon")
	t.Setenv("EMBED_CACHE_SIZE", "-3")
	t.Setenv("EMBED_HOST_RATE", "fast")
	t.Setenv("LOG_LEVEL", "loud")

	cfg := ConfigFromEnv()
	def := DefaultConfig()

	if cfg.Embed.FetchTimeout != def.Embed.FetchTimeout {
		t.Errorf("FetchTimeout = %v, want default %v", cfg.Embed.FetchTimeout, def.Embed.FetchTimeout)
	}
	if cfg.Embed.CacheSize != def.Embed.CacheSize {
		t.Errorf("CacheSize = %d, want default %d", cfg.Embed.CacheSize, def.Embed.CacheSize)
	}
	if cfg.Embed.HostRate != def.Embed.HostRate {
		t.Errorf("HostRate = %v, want default %v", cfg.Embed.HostRate, def.Embed.HostRate)
	}
	if cfg.LogLevel != def.LogLevel {
		t.Errorf("LogLevel = %v, want default %v", cfg.LogLevel, def.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}
