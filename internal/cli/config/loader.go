package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/notekeep-go/internal/infra/confloader"
)

// Load layers the file at path (optional), the environment and overrides
// on top of Default. Override keys are dotted, e.g. "log.level".
func Load(path string, overrides map[string]any) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg := Default()
	l := confloader.NewLoader(confloader.WithConfigFile(path), confloader.WithOptionalFile())
	if err := l.Load(cfg); err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		if err := l.LoadMap(overrides); err != nil {
			return nil, err
		}
		if err := l.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("unmarshal overrides: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var problems []string

	for name, raw := range map[string]string{"gateway.base_url": c.Gateway.BaseURL, "gateway.refresh_url": c.Gateway.RefreshURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			problems = append(problems, name+" must be an absolute http(s) URL")
		}
	}
	if c.Gateway.Timeout < 0 {
		problems = append(problems, "gateway.timeout must not be negative")
	}
	if c.Gateway.RateLimit < 0 {
		problems = append(problems, "gateway.rate_limit must not be negative")
	}

	switch c.Session.Backend {
	case BackendBadger:
		if c.Session.StateDir == "" {
			problems = append(problems, "session.state_dir is required for the badger backend")
		}
	case BackendRedis:
		if c.Session.RedisURL == "" {
			problems = append(problems, "session.redis_url is required for the redis backend")
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("session.backend %q is not one of badger, redis, memory", c.Session.Backend))
	}

	if c.Cache.Size < 0 {
		problems = append(problems, "cache.size must not be negative")
	}

	switch c.Output.Format {
	case "table", "json", "yaml":
	default:
		problems = append(problems, fmt.Sprintf("output.format %q is not one of table, json, yaml", c.Output.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Session.EncryptionKey != "" {
		out.Session.EncryptionKey = "***"
	}
	if u, err := url.Parse(out.Session.RedisURL); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
			out.Session.RedisURL = u.String()
		}
	}
	return &out
}

// Save writes cfg as YAML, creating the directory. Existing files are
// only replaced when overwrite is set.
func Save(cfg *Config, path string, overwrite bool) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
