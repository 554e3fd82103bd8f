package peer

import (
	"time"

	"github.com/okian/huddle/pkg/logger"
)

// Option applies a configuration option to the Broker.
type Option func(*Broker)

// WithConfidenceThreshold sets the conviction floor for publishing a lesson.
func WithConfidenceThreshold(t float64) Option {
	return func(b *Broker) {
		if t > 0 && t <= 1 {
			b.threshold = t
		}
	}
}

// WithIDFunc overrides event ID generation, mainly for tests.
func WithIDFunc(fn func() string) Option {
	return func(b *Broker) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger overrides the broker's logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Broker) {
		if l != nil {
			b.log = l
		}
	}
}
