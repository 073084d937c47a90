package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultPortalURL = "https://ir-comercio-portal-zcan.onrender.com"

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port int `yaml:"port"`
	// Store selects the backend: "postgres" (default) or "memory" for local runs.
	Store       string `yaml:"store"`
	DatabaseURL string `yaml:"database_url"`
	// SessionSecret switches the token gate from presence-only to HS256 JWT verification.
	SessionSecret string `yaml:"session_secret"`
	PortalURL     string `yaml:"portal_url"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	BcryptCost    int    `yaml:"bcrypt_cost"`
	Migrate       bool   `yaml:"migrate"`
}

func Defaults() Config {
	return Config{
		Port:       3000,
		Store:      StorePostgres,
		PortalURL:  DefaultPortalURL,
		LogLevel:   "info",
		LogFormat:  "text",
		BcryptCost: 10,
		Migrate:    true,
	}
}

// Load applies defaults, then the YAML file named by USERPANEL_CONFIG (if any),
// then environment overrides.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("USERPANEL_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.loadEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config file %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv("USERPANEL_STORE"); v != "" {
		c.Store = strings.ToLower(strings.TrimSpace(v))
	}
	if v := firstEnv("USERPANEL_DATABASE_URL", "DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("USERPANEL_SESSION_SECRET"); v != "" {
		c.SessionSecret = v
	}
	if v := os.Getenv("USERPANEL_PORTAL_URL"); v != "" {
		c.PortalURL = v
	}
	if v := os.Getenv("USERPANEL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("USERPANEL_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}

	if v := firstEnv("USERPANEL_PORT", "PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p < 65536 {
			c.Port = p
		}
	}

	if v := os.Getenv("USERPANEL_BCRYPT_COST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 4 && n <= 31 {
			c.BcryptCost = n
		}
	}

	if v := os.Getenv("USERPANEL_MIGRATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Migrate = b
		}
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func (c Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.Port)
}
