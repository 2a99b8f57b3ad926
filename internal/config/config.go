package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	StoreBackend  string   `mapstructure:"STORE_BACKEND"`
	StoreURL      string   `mapstructure:"STORE_URL"`
	StoreAPIKey   string   `mapstructure:"STORE_API_KEY"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	AuthMode      string   `mapstructure:"AUTH_MODE"`
	SessionFile   string   `mapstructure:"SESSION_FILE"`
	SessionSecret string   `mapstructure:"SESSION_SECRET"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_BACKEND", "") // auto-detect: "" -> inferred from STORE_URL/DATABASE_URL
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("AUTH_MODE", "") // auto-detect: "" -> inferred from store backend
	v.SetDefault("SESSION_FILE", ".webstertrack-session.json")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("STORE_BACKEND")
	v.BindEnv("STORE_URL")
	v.BindEnv("STORE_API_KEY")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_MODE")
	v.BindEnv("SESSION_FILE")
	v.BindEnv("SESSION_SECRET")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ResolvedStoreBackend returns the effective store backend. If STORE_BACKEND
// is explicitly set, it is returned. Otherwise the backend is inferred:
//   - STORE_URL set    → "rest" (hosted PostgREST-style store)
//   - DATABASE_URL set → "postgres" (self-hosted database)
//   - Otherwise        → "memory" (development only)
func (c *Config) ResolvedStoreBackend() string {
	if c.StoreBackend != "" {
		return c.StoreBackend
	}
	if c.StoreURL != "" {
		return "rest"
	}
	if c.DatabaseURL != "" {
		return "postgres"
	}
	return "memory"
}

// ResolvedAuthMode returns the effective auth mode. "provider" delegates
// sign-in/sign-up to the hosted auth service; "mock" accepts any credentials
// and persists a fabricated session locally.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.ResolvedStoreBackend() == "rest" {
		return "provider"
	}
	return "mock"
}

// Validate checks that the configuration is coherent before the server
// starts. A rest backend needs a store URL, a postgres backend needs a
// database URL, and the memory backend is refused outside development.
func (c *Config) Validate() error {
	switch c.ResolvedStoreBackend() {
	case "rest":
		if c.StoreURL == "" {
			return fmt.Errorf("STORE_URL is required when STORE_BACKEND is \"rest\"")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is \"postgres\"")
		}
	case "memory":
		if !c.IsDev() {
			return fmt.Errorf("STORE_BACKEND \"memory\" is only allowed when ENV=development")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be \"rest\", \"postgres\", or \"memory\", got %q", c.StoreBackend)
	}

	mode := c.ResolvedAuthMode()
	if mode != "mock" && mode != "provider" {
		return fmt.Errorf("AUTH_MODE must be \"mock\" or \"provider\", got %q", mode)
	}
	if mode == "provider" && c.StoreURL == "" {
		return fmt.Errorf("AUTH_MODE \"provider\" requires STORE_URL for the auth service")
	}
	if mode == "mock" && c.SessionSecret == "" && !c.IsDev() {
		return fmt.Errorf("SESSION_SECRET is required for mock auth outside development")
	}
	return nil
}
