package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/notekeep-go/internal/client/gateway"
)

// Session backends.
const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// DirName is the per-user configuration directory under $HOME.
const DirName = ".notekeep"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			BaseURL:    gateway.DefaultBaseURL,
			RefreshURL: gateway.DefaultRefreshURL,
			Timeout:    gateway.DefaultTimeout,
			RateLimit:  0,
			RateBurst:  1,
		},
		Session: SessionConfig{
			Backend:  BackendBadger,
			StateDir: filepath.Join(DefaultDir(), "state"),
		},
		Cache: CacheConfig{
			Size: 256,
			TTL:  5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Output: OutputConfig{
			Format: "table",
		},
	}
}

// DefaultDir returns ~/.notekeep, or .notekeep when $HOME is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// DefaultConfigPath returns ~/.notekeep/cli.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "cli.yaml")
}
