package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables controlling the loader itself.
const (
	envPrefix     = "VMS_"
	envConfigPath = "VMS_CONFIG"
	envDotenvPath = "VMS_DOTENV"
)

// Load builds a Config by layering defaults, optional file, optional dotenv and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) from path, or VMS_CONFIG when path is empty
//  3. dotenv file named by VMS_DOTENV (values never override the real environment)
//  4. env (prefix VMS_)
func Load(_ context.Context, path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	if dotenv := os.Getenv(envDotenvPath); dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, dotenv, err)
		}
	}

	// VMS_BACKEND_BASE_URL -> backend_base_url (flat keys, underscores preserved)
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.BackendBaseURL) == "":
		return fmt.Errorf("%w: backend_base_url must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.TokenHeader) == "":
		return fmt.Errorf("%w: token_header must not be empty", ErrInvalidConfig)
	case c.MessageTTLMS <= 0:
		return fmt.Errorf("%w: message_ttl_ms must be positive", ErrInvalidConfig)
	case c.RequestTimeoutMS < 0:
		return fmt.Errorf("%w: request_timeout_ms must not be negative", ErrInvalidConfig)
	}
	return nil
}
