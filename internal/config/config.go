// Package config handles configuration loading from TOML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Project   ProjectConfig   `toml:"project"`
	Summarize SummarizeConfig `toml:"summarize"`
	Context   ContextConfig   `toml:"context"`
	Cache     CacheConfig     `toml:"cache"`
	UI        UIConfig        `toml:"ui"`
}

// ProjectConfig holds indexing settings.
type ProjectConfig struct {
	IncludeTests bool `toml:"include_tests"`
	// Concurrency bounds the parse worker pool; 0 means one worker per CPU.
	Concurrency int `toml:"concurrency"`
	MaxFileKB   int `toml:"max_file_kb"`
}

// MaxFileBytesOrDefault returns the configured file size cap in bytes, or
// 1MB if unset.
func (p ProjectConfig) MaxFileBytesOrDefault() int64 {
	if p.MaxFileKB <= 0 {
		return 1 << 20
	}
	return int64(p.MaxFileKB) * 1024
}

// SummarizeConfig holds LLM summarization settings.
type SummarizeConfig struct {
	Provider       string  `toml:"provider"`
	Endpoint       string  `toml:"endpoint"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxWorkers     int     `toml:"max_workers"`
}

// ProviderOrDefault returns the configured provider name or "openai".
func (s SummarizeConfig) ProviderOrDefault() string {
	if s.Provider == "" {
		return "openai"
	}
	return s.Provider
}

// TimeoutOrDefault returns the per-node timeout in seconds, or 60 if unset.
func (s SummarizeConfig) TimeoutOrDefault() int {
	if s.TimeoutSeconds <= 0 {
		return 60
	}
	return s.TimeoutSeconds
}

// WorkersOrDefault returns the worker pool size, or 10 if unset.
func (s SummarizeConfig) WorkersOrDefault() int {
	if s.MaxWorkers <= 0 {
		return 10
	}
	return s.MaxWorkers
}

// ContextConfig holds context collection settings.
type ContextConfig struct {
	TokenBudget int `toml:"token_budget"`
}

// BudgetOrDefault returns the configured token budget or 1200 if unset.
func (c ContextConfig) BudgetOrDefault() int {
	if c.TokenBudget <= 0 {
		return 1200
	}
	return c.TokenBudget
}

// CacheConfig holds summary cache settings.
type CacheConfig struct {
	Path     string `toml:"path"`
	TTLHours int    `toml:"ttl_hours"`
}

// CacheTTLOrDefault returns the configured TTL or 24 hours if unset.
func (c CacheConfig) CacheTTLOrDefault() int {
	if c.TTLHours <= 0 {
		return 24
	}
	return c.TTLHours
}

// UIConfig holds terminal output settings.
type UIConfig struct {
	// SyntaxTheme is the Chroma syntax highlighting theme used when
	// printing source. Defaults to "vulcan" if unset.
	SyntaxTheme string `toml:"syntax_theme"`
}

// SyntaxThemeOrDefault returns the configured syntax theme or "vulcan" if unset.
func (u UIConfig) SyntaxThemeOrDefault() string {
	if u.SyntaxTheme == "" {
		return "vulcan"
	}
	return u.SyntaxTheme
}

// Default returns a configuration that works without a config file: a mock
// summarizer and stock limits.
func Default() *Config {
	cfg := &Config{}
	cfg.Summarize.Provider = "mock"
	applyEnvOverrides(cfg)
	return cfg
}

// Load reads configuration from a TOML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	var errs []error

	if c.Summarize.ProviderOrDefault() == "openai" {
		if c.Summarize.Endpoint == "" {
			errs = append(errs, errors.New("summarize.endpoint is required for the openai provider"))
		} else if err := validateEndpoint(c.Summarize.Endpoint); err != nil {
			errs = append(errs, fmt.Errorf("summarize.endpoint=%q is invalid: %v", c.Summarize.Endpoint, err))
		}
		if c.Summarize.Model == "" {
			errs = append(errs, errors.New("summarize.model is required for the openai provider"))
		}
	}

	if c.Summarize.Temperature < 0.0 || c.Summarize.Temperature > 2.0 {
		errs = append(errs, fmt.Errorf("summarize.temperature=%v must be between 0.0 and 2.0", c.Summarize.Temperature))
	}

	if c.Context.TokenBudget < 0 {
		errs = append(errs, fmt.Errorf("context.token_budget=%d must not be negative", c.Context.TokenBudget))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateEndpoint(value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("missing scheme or host")
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	for _, setter := range []struct {
		env   string
		apply func(string)
	}{
		{"CODETREE_SUMMARIZE_ENDPOINT", func(v string) {
			if v != "" {
				cfg.Summarize.Endpoint = v
			}
		}},
		{"CODETREE_SUMMARIZE_MODEL", func(v string) {
			if v != "" {
				cfg.Summarize.Model = v
			}
		}},
		{"CODETREE_SUMMARIZE_PROVIDER", func(v string) {
			if v != "" {
				cfg.Summarize.Provider = v
			}
		}},
		{"CODETREE_CACHE_PATH", func(v string) {
			if v != "" {
				cfg.Cache.Path = v
			}
		}},
		{"CODETREE_TOKEN_BUDGET", func(v string) {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				cfg.Context.TokenBudget = n
			}
		}},
	} {
		setter.apply(os.Getenv(setter.env))
	}
}

// DataDir returns the path to the codetree data directory (~/.config/codetree).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "codetree"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	return dir, nil
}
