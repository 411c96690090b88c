package config

import "time"

// Config is the complete CLI configuration.
type Config struct {
	Gateway GatewayConfig `koanf:"gateway" yaml:"gateway"`
	Session SessionConfig `koanf:"session" yaml:"session"`
	Cache   CacheConfig   `koanf:"cache" yaml:"cache"`
	Log     LogConfig     `koanf:"log" yaml:"log"`
	Output  OutputConfig  `koanf:"output" yaml:"output"`
}

// GatewayConfig configures outbound API traffic.
type GatewayConfig struct {
	BaseURL    string        `koanf:"base_url" yaml:"base_url"`
	RefreshURL string        `koanf:"refresh_url" yaml:"refresh_url"`
	Timeout    time.Duration `koanf:"timeout" yaml:"timeout"`

	// RateLimit is requests per second; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `koanf:"rate_burst" yaml:"rate_burst"`
}

// SessionConfig configures where the session is persisted.
type SessionConfig struct {
	// Backend is "badger", "redis" or "memory".
	Backend   string `koanf:"backend" yaml:"backend"`
	StateDir  string `koanf:"state_dir" yaml:"state_dir"`
	RedisURL  string `koanf:"redis_url" yaml:"redis_url,omitempty"`
	Namespace string `koanf:"namespace" yaml:"namespace,omitempty"`

	// EncryptionKey seals the persisted credential when set.
	EncryptionKey string `koanf:"encryption_key" yaml:"encryption_key,omitempty"`
}

// CacheConfig configures the query cache. Size 0 disables it.
type CacheConfig struct {
	Size int           `koanf:"size" yaml:"size"`
	TTL  time.Duration `koanf:"ttl" yaml:"ttl"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// OutputConfig sets the default output format.
type OutputConfig struct {
	Format string `koanf:"format" yaml:"format"`
	Wide   bool   `koanf:"wide" yaml:"wide"`
}
