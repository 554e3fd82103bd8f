package predict

import (
	"time"

	"github.com/okian/huddle/internal/domain/validate"
)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithValidator sets the consistency validator records must pass.
func WithValidator(v *validate.Validator) Option {
	return func(g *Generator) {
		if v != nil {
			g.validator = v
		}
	}
}

// WithMaxRetries bounds repair-and-retry attempts after a validation failure.
func WithMaxRetries(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.maxRetries = n
		}
	}
}

// WithSpreadAgreementThreshold sets the absolute line above which picks are
// forced into directional agreement. Must match the validator's threshold.
func WithSpreadAgreementThreshold(t float64) Option {
	return func(g *Generator) {
		if t >= 0 {
			g.spreadThreshold = t
		}
	}
}

// WithIDFunc overrides record id generation, mainly for tests.
func WithIDFunc(f func() string) Option {
	return func(g *Generator) {
		if f != nil {
			g.newID = f
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}
