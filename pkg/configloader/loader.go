// Package configloader layers configuration from hard-coded defaults, an
// optional .env file, and process environment variables, then validates the
// result. Keys are flat lowercase snake_case; the environment variable
// PREFIX_BASE_URL maps to the koanf key "base_url".
package configloader

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Validator is implemented by config structs that can check themselves.
type Validator interface {
	Validate() error
}

// Load builds a T from three layers, lowest priority first: defaults, the
// .env file in the working directory (if present), and process environment
// variables carrying envPrefix. The populated config is validated before it
// is returned.
func Load[T Validator](envPrefix string, defaults map[string]any) (T, error) {
	var cfg T
	k := koanf.New(".")

	// 1. Hard-coded fallbacks.
	if len(defaults) > 0 {
		if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
			return cfg, fmt.Errorf("configloader: loading defaults: %w", err)
		}
	}

	transform := func(key string) string {
		key = strings.TrimPrefix(key, envPrefix)
		return strings.ToLower(key)
	}

	// 2. Optional .env file.
	if envFile, err := godotenv.Read(".env"); err == nil {
		layer := make(map[string]any, len(envFile))
		for key, value := range envFile {
			if !strings.HasPrefix(key, envPrefix) {
				continue
			}
			layer[transform(key)] = value
		}
		if err := k.Load(confmap.Provider(layer, "."), nil); err != nil {
			return cfg, fmt.Errorf("configloader: loading .env: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("configloader: reading .env: %w", err)
	}

	// 3. Process environment, the highest priority.
	if err := k.Load(env.Provider(envPrefix, ".", transform), nil); err != nil {
		return cfg, fmt.Errorf("configloader: loading environment: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("configloader: unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configloader: config validation failed: %w", err)
	}
	return cfg, nil
}
