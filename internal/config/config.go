package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds client settings. Precedence: defaults, then the YAML file,
// then EDUBOT_* environment variables, then command-line flags.
type Config struct {
	// APIURL is the base URL of the backend, without the /api suffix.
	APIURL string `yaml:"api_url"`

	// Timeout bounds every backend call, retries included. Default: 30s.
	Timeout time.Duration `yaml:"timeout"`

	// Offline swaps the backend for the local store and an LLM provider.
	Offline bool `yaml:"offline"`

	// OfflineRole is the role granted in offline mode.
	OfflineRole string `yaml:"offline_role"`

	// OfflineUser owns the lessons created in offline mode.
	OfflineUser string `yaml:"offline_user"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file,omitempty"`
	DBPath   string `yaml:"db_path,omitempty"`

	// HistoryLimit caps the sidebar history list. 0 shows everything.
	HistoryLimit int `yaml:"history_limit"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		APIURL:       "http://127.0.0.1:8000",
		Timeout:      30 * time.Second,
		OfflineRole:  "student",
		OfflineUser:  "learner@localhost",
		LogLevel:     "info",
		HistoryLimit: 20,
	}
}

// DefaultPath resolves the config file path:
// 1. EDUBOT_CONFIG environment variable
// 2. $XDG_CONFIG_HOME/edubot/config.yaml
// 3. ~/.config/edubot/config.yaml
func DefaultPath() (string, error) {
	if p := os.Getenv("EDUBOT_CONFIG"); p != "" {
		return p, nil
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "edubot", "config.yaml"), nil
}

// Load reads the YAML file at path over the defaults and applies env
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from EDUBOT_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("EDUBOT_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("EDUBOT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("EDUBOT_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("EDUBOT_OFFLINE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("EDUBOT_OFFLINE: %w", err)
		}
		c.Offline = b
	}
	if v := os.Getenv("EDUBOT_OFFLINE_ROLE"); v != "" {
		c.OfflineRole = v
	}
	if v := os.Getenv("EDUBOT_OFFLINE_USER"); v != "" {
		c.OfflineUser = v
	}
	if v := os.Getenv("EDUBOT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("EDUBOT_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	return nil
}

// Validate checks the settings that would otherwise fail late.
func (c Config) Validate() error {
	if !c.Offline {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("api_url %q must be an absolute http(s) URL", c.APIURL)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	switch c.OfflineRole {
	case "student", "teacher", "admin":
	default:
		return fmt.Errorf("offline_role %q must be student, teacher or admin", c.OfflineRole)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q must be debug, info, warn or error", c.LogLevel)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative")
	}
	return nil
}

// BaseURL returns APIURL without a trailing slash.
func (c Config) BaseURL() string {
	return strings.TrimRight(c.APIURL, "/")
}

// YAML renders the config for `edubot config show`.
func (c Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(out), nil
}
