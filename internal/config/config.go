// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env on top.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration for the prediction ensemble.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// RosterFile optionally points at a YAML expert roster overriding the
	// built-in fifteen-expert roster.
	RosterFile string `koanf:"roster_file"`

	// QuorumSize is the minimum number of expert forecasts required before a
	// non-degraded consensus may form. Zero means the full active roster.
	QuorumSize int `koanf:"quorum_size"`

	// ConsensusTimeoutMS bounds how long the aggregator waits at the per-game
	// barrier before proceeding in degraded mode. Zero disables degraded mode.
	ConsensusTimeoutMS int `koanf:"consensus_timeout_ms"`

	// SpreadAgreementThreshold is the absolute line above which the winner
	// pick must agree with the spread pick.
	SpreadAgreementThreshold float64 `koanf:"spread_agreement_threshold"`

	// HighConfidenceThreshold marks predictions notable enough for peer learning.
	HighConfidenceThreshold float64 `koanf:"high_confidence_threshold"`

	// PeerDampening scales peer-induced weight nudges relative to direct
	// learning updates. Must stay strictly below 1.
	PeerDampening float64 `koanf:"peer_dampening"`

	// MemoryTopK is the number of similar episodic memories retrieved during generation.
	MemoryTopK int `koanf:"memory_top_k"`

	// EmbeddingDim is the fixed dimension of episodic memory embeddings.
	EmbeddingDim int `koanf:"embedding_dim"`

	// TrendWindow is the number of recent games used for the accuracy trend slope.
	TrendWindow int `koanf:"trend_window"`

	// MaxErrorMagnitude caps the normalized error fed into weight updates.
	MaxErrorMagnitude float64 `koanf:"max_error_magnitude"`

	// PeerQueueSize bounds the in-memory peer learning event queue.
	PeerQueueSize int `koanf:"peer_queue_size"`

	// BrokerWorkers sets the number of peer event broker workers.
	BrokerWorkers int `koanf:"broker_workers"`

	// MaxGenerationRetries bounds repair-and-retry attempts after a
	// consistency violation.
	MaxGenerationRetries int `koanf:"max_generation_retries"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		Addr:                     ":9090",
		QuorumSize:               0, // full roster
		ConsensusTimeoutMS:       5_000,
		SpreadAgreementThreshold: 3.0,
		HighConfidenceThreshold:  0.75,
		PeerDampening:            0.25,
		MemoryTopK:               5,
		EmbeddingDim:             16,
		TrendWindow:              10,
		MaxErrorMagnitude:        1.0,
		PeerQueueSize:            10_000,
		BrokerWorkers:            runtime.NumCPU(),
		MaxGenerationRetries:     3,
	}
}
