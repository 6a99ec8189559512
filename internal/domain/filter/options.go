package filter

// Option applies a configuration option to the Filter.
type Option func(*Filter)

// WithThreshold sets the confidence a detection must exceed. Values outside
// [0,1] are ignored.
func WithThreshold(threshold float64) Option {
	return func(f *Filter) {
		if threshold >= 0 && threshold <= 1 {
			f.threshold = threshold
		}
	}
}

// WithAllowedLabels replaces the allow-list. Empty names are skipped and an
// empty list leaves the default in place.
func WithAllowedLabels(labels ...string) Option {
	return func(f *Filter) {
		allowed := make(map[string]struct{}, len(labels))
		for _, l := range labels {
			if l != "" {
				allowed[l] = struct{}{}
			}
		}
		if len(allowed) > 0 {
			f.allowed = allowed
		}
	}
}
