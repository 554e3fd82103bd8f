package service

import (
	"time"

	memorystore "github.com/okian/huddle/internal/adapters/memory"
	"github.com/okian/huddle/internal/adapters/repository"
	"github.com/okian/huddle/internal/domain/expert"
	"github.com/okian/huddle/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRoster replaces the default expert roster.
func WithRoster(r *expert.Roster) Option {
	return func(s *Service) {
		if r != nil {
			s.roster = r
		}
	}
}

// WithStore replaces the default in-memory forecast store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithMemoryStore replaces the default episodic memory store.
func WithMemoryStore(m memorystore.Store) Option {
	return func(s *Service) {
		if m != nil {
			s.memories = m
		}
	}
}

// WithQuorumSize sets how many experts a consensus waits for.
// Zero means the full roster.
func WithQuorumSize(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.quorumSize = n
		}
	}
}

// WithConsensusTimeout bounds how long a consensus waits for stragglers.
func WithConsensusTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.consensusTimeout = d
		}
	}
}

// WithWorkerCount sets the number of peer lesson workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the peer lesson queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMemoryTopK sets how many memories each expert recalls per game.
func WithMemoryTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.memoryTopK = k
		}
	}
}

// WithEmbeddingDim sets the episodic memory embedding dimension.
func WithEmbeddingDim(d int) Option {
	return func(s *Service) {
		if d > 0 {
			s.embeddingDim = d
		}
	}
}

// WithTrendWindow sets how many recent games feed accuracy trends.
func WithTrendWindow(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.trendWindow = n
		}
	}
}

// WithMaxGenerationRetries bounds regeneration attempts after a
// consistency failure.
func WithMaxGenerationRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithPeerDampening sets the fraction applied to peer-induced nudges.
func WithPeerDampening(d float64) Option {
	return func(s *Service) {
		if d > 0 && d < 1 {
			s.peerDampening = d
		}
	}
}

// WithConfidenceThreshold sets the conviction floor for peer lessons and
// emotional tagging.
func WithConfidenceThreshold(t float64) Option {
	return func(s *Service) {
		if t > 0 && t <= 1 {
			s.confidenceThreshold = t
		}
	}
}

// WithSpreadAgreementThreshold sets the spread magnitude beyond which the
// spread pick must align with the predicted winner.
func WithSpreadAgreementThreshold(t float64) Option {
	return func(s *Service) {
		if t >= 0 {
			s.spreadThreshold = t
		}
	}
}

// WithMaxErrorMagnitude bounds the normalized learning error.
func WithMaxErrorMagnitude(m float64) Option {
	return func(s *Service) {
		if m > 0 {
			s.maxErrorMagnitude = m
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
