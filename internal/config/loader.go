package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if HUDDLE_CONFIG is set
//  3. env (prefix HUDDLE_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("HUDDLE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: HUDDLE_ADDR, HUDDLE_QUORUM_SIZE, ...
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("HUDDLE_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "huddle_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations that would violate ensemble invariants.
func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.PeerDampening <= 0 || c.PeerDampening >= 1:
		return fmt.Errorf("%w: peer_dampening must be in (0,1), got %v", ErrInvalidConfig, c.PeerDampening)
	case c.HighConfidenceThreshold < 0 || c.HighConfidenceThreshold > 1:
		return fmt.Errorf("%w: high_confidence_threshold must be in [0,1], got %v", ErrInvalidConfig, c.HighConfidenceThreshold)
	case c.QuorumSize < 0:
		return fmt.Errorf("%w: quorum_size must not be negative", ErrInvalidConfig)
	case c.MemoryTopK < 0:
		return fmt.Errorf("%w: memory_top_k must not be negative", ErrInvalidConfig)
	case c.EmbeddingDim <= 0:
		return fmt.Errorf("%w: embedding_dim must be positive", ErrInvalidConfig)
	case c.MaxErrorMagnitude <= 0:
		return fmt.Errorf("%w: max_error_magnitude must be positive", ErrInvalidConfig)
	}
	return nil
}
