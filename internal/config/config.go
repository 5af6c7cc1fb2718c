// Package config loads smartshop settings with precedence
// environment > .env file > YAML file > defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const devSecret = "smartshop-dev-secret"

type Config struct {
	Env        string        `yaml:"env"`
	Port       string        `yaml:"port"`
	DBPath     string        `yaml:"db_path"`
	APIURL     string        `yaml:"api_url"`
	AssetURL   string        `yaml:"asset_url"`
	Secret     string        `yaml:"secret"`
	LogLevel   string        `yaml:"log_level"`
	Debounce   time.Duration `yaml:"debounce"`
	APITimeout time.Duration `yaml:"api_timeout"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Env:        "development",
		Port:       "8080",
		DBPath:     "smartshop.db",
		APIURL:     "http://localhost:8001/api",
		LogLevel:   "info",
		Debounce:   500 * time.Millisecond,
		APITimeout: 15 * time.Second,
		SessionTTL: 30 * 24 * time.Hour,
	}
}

// Load builds the configuration. The YAML file named by SMARTSHOP_CONFIG and
// envFile are both optional.
func Load(envFile string) (*Config, error) {
	cfg := Default()

	if path := os.Getenv("SMARTSHOP_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", envFile, err)
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.apply(lookup); err != nil {
		return nil, err
	}

	if cfg.Secret == "" && cfg.IsDev() {
		cfg.Secret = devSecret
	}
	if cfg.AssetURL == "" {
		cfg.AssetURL = origin(cfg.APIURL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) apply(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("SMARTSHOP_ENV", &c.Env)
	str("SMARTSHOP_PORT", &c.Port)
	str("SMARTSHOP_DB_PATH", &c.DBPath)
	str("SMARTSHOP_API_URL", &c.APIURL)
	str("SMARTSHOP_ASSET_URL", &c.AssetURL)
	str("SMARTSHOP_SECRET", &c.Secret)
	str("SMARTSHOP_LOG_LEVEL", &c.LogLevel)

	for key, dst := range map[string]*time.Duration{
		"SMARTSHOP_DEBOUNCE":    &c.Debounce,
		"SMARTSHOP_API_TIMEOUT": &c.APITimeout,
		"SMARTSHOP_SESSION_TTL": &c.SessionTTL,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api url %q must be an absolute URL", c.APIURL)
	}
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.Debounce <= 0 || c.APITimeout <= 0 || c.SessionTTL <= 0 {
		return errors.New("debounce, api timeout and session ttl must be positive")
	}
	if c.Secret == "" {
		return errors.New("SMARTSHOP_SECRET is required outside development")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// origin returns scheme://host of raw, or raw unchanged when it does not parse.
func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}
