package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/wham/gitlab-timereport/internal/extract"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 1
)

// Config holds the settings of one run
type Config struct {
	URI         string        // GraphQL endpoint
	Token       string        // Personal access token
	Group       string        // Group name as typed by the user
	OutFile     string        // Target SQLite file
	Force       bool          // Move an existing OutFile aside
	Timeout     time.Duration // Per-request timeout
	Concurrency int           // Projects fetched at a time
	HomeDir     string        // Holds config.toml and .env
	Verbose     bool
}

// fileConfig is the layout of config.toml
type fileConfig struct {
	URI         string `toml:"uri"`
	Token       string `toml:"token"`
	Group       string `toml:"group"`
	Timeout     string `toml:"timeout"`
	Concurrency int    `toml:"concurrency"`
}

// DefaultHomeDir returns ~/.gitlab-timereport, or ./.gitlab-timereport when
// the user home cannot be determined.
func DefaultHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".gitlab-timereport")
}

// Default returns a config with defaults only.
func Default() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		HomeDir:     DefaultHomeDir(),
	}
}

// Load builds a config from, in increasing precedence: defaults, the TOML
// file, .env files and the environment. An empty configFile means
// <homeDir>/config.toml, which may be absent; an explicit one must exist.
// Command-line flags are applied by the caller on top.
func Load(homeDir, configFile string) (*Config, error) {
	cfg := Default()
	if homeDir != "" {
		cfg.HomeDir = expandPath(homeDir)
	}

	path := configFile
	if path == "" {
		path = filepath.Join(cfg.HomeDir, "config.toml")
	}
	if err := cfg.loadFile(expandPath(path), configFile != ""); err != nil {
		return nil, err
	}

	// godotenv never overrides variables that are already set, so the home
	// file loaded first wins over the working directory one.
	for _, envPath := range []string{filepath.Join(cfg.HomeDir, ".env"), ".env"} {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	if _, err := os.Stat(path); os.IsNotExist(err) && !required {
		return nil
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if fc.URI != "" {
		c.URI = fc.URI
	}
	if fc.Token != "" {
		c.Token = fc.Token
	}
	if fc.Group != "" {
		c.Group = fc.Group
	}
	if fc.Timeout != "" {
		timeout, err := ParseTimeout(fc.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout in %s: %w", path, err)
		}
		c.Timeout = timeout
	}
	if fc.Concurrency != 0 {
		c.Concurrency = fc.Concurrency
	}
	return nil
}

func (c *Config) loadEnv() error {
	if v := os.Getenv("GITLAB_URI"); v != "" {
		c.URI = v
	}
	if v := os.Getenv("GITLAB_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("GITLAB_GROUP"); v != "" {
		c.Group = v
	}
	if v := os.Getenv("GITLAB_TIMEOUT"); v != "" {
		timeout, err := ParseTimeout(v)
		if err != nil {
			return fmt.Errorf("invalid GITLAB_TIMEOUT: %w", err)
		}
		c.Timeout = timeout
	}
	if v := os.Getenv("GITLAB_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GITLAB_CONCURRENCY: %w", err)
		}
		c.Concurrency = n
	}
	return nil
}

// ParseTimeout accepts a Go duration ("45s", "2m") or a plain number of seconds.
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// Normalize strips one trailing slash from the URI.
func (c *Config) Normalize() {
	c.URI = strings.TrimSuffix(c.URI, "/")
}

// Validate reports the first missing or out-of-range setting.
func (c *Config) Validate() error {
	switch {
	case c.URI == "":
		return errors.New("GitLab GraphQL URI is required, use --uri or set GITLAB_URI")
	case c.Token == "":
		return errors.New("GitLab token is required, use --token or set GITLAB_TOKEN")
	case c.Group == "":
		return errors.New("GitLab group is required, use --group or set GITLAB_GROUP")
	case c.Timeout <= 0:
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	case c.Concurrency < 1:
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	return nil
}

// GroupPath is the group name as GitLab spells it in paths.
func (c *Config) GroupPath() string {
	return extract.ScopePath(c.Group)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
