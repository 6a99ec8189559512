package repository

import "github.com/okian/autolabel/pkg/logger"

// Option applies a configuration option to the InstrumentedStore.
type Option func(*InstrumentedStore)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *InstrumentedStore) {
		if l != nil {
			s.logger = l
		}
	}
}
