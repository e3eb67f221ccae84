package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every configuration variable.
const EnvPrefix = "REHAB_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if REHAB_CONFIG is set
//  3. env (prefix REHAB_), including a .env file in the working directory
func Load(ctx context.Context) (*Config, error) {
	return LoadFiles(ctx, ".env")
}

// unprefixedKeys maps provider SDK variables onto config keys.
var unprefixedKeys = map[string]string{
	"OPENAI_API_KEY": "openai_api_key",
	"GEMINI_API_KEY": "gemini_api_key",
}

// LoadFiles is Load with explicit dotenv files. Missing files are skipped;
// variables already set in the environment win.
func LoadFiles(ctx context.Context, dotenv ...string) (*Config, error) {
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	base := New(ctx)
	k := koanf.New(".")

	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Provider credentials under their conventional names; REHAB_* wins.
	providerKeys := env.Provider("", ".", func(s string) string {
		return unprefixedKeys[s]
	})
	if err := k.Load(providerKeys, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// REHAB_CSV_PATH -> csv_path; underscores are kept to match the koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	cfg.ParserBackend = strings.ToLower(strings.TrimSpace(cfg.ParserBackend))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
