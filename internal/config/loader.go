package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "AUTOLABEL_"
	// EnvConfigPath names the config file when no path is passed to Load.
	EnvConfigPath = EnvPrefix + "CONFIG"
	// DotEnvFile is read, when present, before the environment is consulted.
	DotEnvFile = ".env"
)

// listKeys hold comma separated lists when set from the environment.
var listKeys = map[string]struct{}{
	"valid_labels": {},
	"vocabulary":   {},
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file, JSON when the name ends in .json and YAML otherwise; path, or
//     AUTOLABEL_CONFIG when path is empty
//  3. env (prefix AUTOLABEL_), after loading .env when it exists
//
// The result is not validated; call Validate before use.
func Load(ctx context.Context, path string) (*Config, error) {
	base := New(ctx)

	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Environment variables: AUTOLABEL_DATASET_ID, AUTOLABEL_PAGE_SIZE, ...
	// map to the flat snake_case keys of the struct tags.
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
		if key == "config" {
			return "", nil
		}
		if _, ok := listKeys[key]; ok {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy. Lists present in a source replace the defaults
	// instead of being merged element by element.
	cfg := *base
	for key := range listKeys {
		if k.Exists(key) {
			switch key {
			case "valid_labels":
				cfg.ValidLabels = nil
			case "vocabulary":
				cfg.Vocabulary = nil
			}
		}
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	return &cfg, nil
}

func parserFor(path string) koanf.Parser {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Parser()
	}
	return yaml.Parser()
}

// loadDotEnv exports the variables of path without overriding the ones
// already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
