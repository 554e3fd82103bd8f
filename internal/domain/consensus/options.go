package consensus

import "time"

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithNumericTolerance sets the agreement band as a fraction of each
// category's range. Values outside (0, 1] are ignored.
func WithNumericTolerance(t float64) AggregatorOption {
	return func(a *Aggregator) {
		if t > 0 && t <= 1 {
			a.tolerance = t
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}
