package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"relaypace/internal/models"
	"relaypace/internal/util"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "RELAYPACE_"

// Load builds a Config by layering defaults, an optional YAML file and env
// vars. Order of precedence (low -> high):
//  1. defaults (New())
//  2. file at path, or at RELAYPACE_CONFIG when path is empty
//  3. env (prefix RELAYPACE_, "__" separates nested keys)
func Load(_ context.Context, path string) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path == "" {
		path = util.EnvOrDefault(EnvPrefix+"CONFIG", "")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// RELAYPACE_DB_PATH -> db_path, RELAYPACE_SEED__RUNNER_COUNT -> seed.runner_count
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		key = strings.ReplaceAll(key, "__", ".")
		if key == "cors_origins" {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	// slices decode element-wise over the defaults, so take configured lists whole
	if k.Exists("seed.loops") {
		var loops []models.LoopSeed
		if err := k.UnmarshalWithConf("seed.loops", &loops, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
			return nil, fmt.Errorf("%w: seed.loops: %v", ErrLoadConfig, err)
		}
		cfg.Seed.Loops = loops
	}
	if k.Exists("cors_origins") {
		cfg.CORSOrigins = k.Strings("cors_origins")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
