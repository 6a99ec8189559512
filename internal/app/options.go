package service

import (
	"fmt"

	"github.com/okian/autolabel/internal/domain/dedupe"
	"github.com/okian/autolabel/internal/domain/filter"
	"github.com/okian/autolabel/pkg/logger"
)

// DecodePolicy says what to do with an image that cannot be decoded.
type DecodePolicy string

// Decode policies.
const (
	DecodeSkip  DecodePolicy = "skip"
	DecodeAbort DecodePolicy = "abort"
)

// ParseDecodePolicy maps a normalized config value (see
// config.Config.DecodePolicy) to a DecodePolicy. Empty means skip.
func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch DecodePolicy(s) {
	case DecodeSkip, "":
		return DecodeSkip, nil
	case DecodeAbort:
		return DecodeAbort, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDecodePolicy, s)
	}
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFilter sets the detection filter.
func WithFilter(f *filter.Filter) Option {
	return func(s *Service) {
		if f != nil {
			s.filter = f
		}
	}
}

// WithPrompt sets the question sent with every crop.
func WithPrompt(prompt string) Option {
	return func(s *Service) {
		if prompt != "" {
			s.prompt = prompt
		}
	}
}

// WithTag sets the tag marking labeled assets.
func WithTag(tag string) Option {
	return func(s *Service) {
		if tag != "" {
			s.tag = tag
		}
	}
}

// WithPageSize sets how many assets are requested per query.
func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithDecodePolicy sets the handling of undecodable images.
func WithDecodePolicy(p DecodePolicy) Option {
	return func(s *Service) {
		if p != "" {
			s.decodePolicy = p
		}
	}
}

// WithDeduper replaces the per-run visit guard.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}
