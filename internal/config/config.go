// Package config loads server settings from the environment.
//
// Variables are read with the BLOG_ prefix, e.g. BLOG_PORT -> Config.Port. A `.env` file in the
// working directory is loaded first if present. SQLITE_DB_PATH and WEBHOOK_SECRET are read
// without the prefix.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "BLOG_"

const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// unprefixed variables kept from earlier deployments
var unprefixedKeys = map[string]string{
	"SQLITE_DB_PATH": "sqlite_db_path",
	"WEBHOOK_SECRET": "webhook_secret",
}

type Config struct {
	Env      string `koanf:"env" validate:"required,oneof=development production test"`
	LogLevel string `koanf:"log_level" validate:"required,oneof=trace debug info warn error"`

	Port            int           `koanf:"port" validate:"required,min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required"`

	// WritesEnabled opens the write gate of the post resource.
	WritesEnabled bool   `koanf:"writes_enabled"`
	Store         string `koanf:"store" validate:"required,oneof=none memory sqlite"`
	PageSize      int    `koanf:"page_size" validate:"required,min=1,max=100"`
	SQLitePath    string `koanf:"sqlite_db_path"`

	// BaseURL is the public URL of the blog, used to rewrite relative links in posts.
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`

	GithubOwner   string `koanf:"github_owner"`
	GithubRepo    string `koanf:"github_repo"`
	GithubBranch  string `koanf:"github_branch" validate:"required"`
	GithubToken   string `koanf:"github_token"`
	WebhookSecret string `koanf:"webhook_secret"`
}

func Default() Config {
	return Config{
		Env:             "production",
		LogLevel:        "info",
		Port:            8080,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		Store:           StoreNone,
		PageSize:        10,
		GithubBranch:    "main",
	}
}

// Load reads the environment over Default and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s variables: %w", envPrefix, err)
	}

	err = k.Load(env.Provider("", ".", func(s string) string {
		return unprefixedKeys[s]
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load unprefixed variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Env = strings.ToLower(cfg.Env)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Store = strings.ToLower(cfg.Store)
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// WebhookEnabled reports whether git ingestion has everything it needs.
func (c *Config) WebhookEnabled() bool {
	return c.GithubOwner != "" && c.GithubRepo != "" && c.WebhookSecret != ""
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
