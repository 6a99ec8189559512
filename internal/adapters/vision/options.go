package vision

import "github.com/okian/autolabel/pkg/logger"

// Option configures the instrumented vision wrappers.
type Option func(*instrumented)

// WithLogger sets the logger used for debug records.
func WithLogger(l logger.Logger) Option {
	return func(i *instrumented) {
		if l != nil {
			i.logger = l
		}
	}
}
