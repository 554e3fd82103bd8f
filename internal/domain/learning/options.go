package learning

// Option configures an Engine.
type Option func(*Engine)

// WithMaxErrorMagnitude bounds the normalized per-category error.
func WithMaxErrorMagnitude(m float64) Option {
	return func(e *Engine) {
		if m > 0 {
			e.maxError = m
		}
	}
}

// WithTrendWindow sets how many recent games feed accuracy and trend.
func WithTrendWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.trendWindow = n
		}
	}
}

// WithPeerDampening sets the fraction applied to peer-induced nudges.
// Values outside (0, 1) are ignored.
func WithPeerDampening(d float64) Option {
	return func(e *Engine) {
		if d > 0 && d < 1 {
			e.dampening = d
		}
	}
}
