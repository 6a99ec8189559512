package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/autolabel/internal/domain/model"
	"github.com/okian/autolabel/pkg/logger"
	"github.com/okian/autolabel/pkg/metrics"
)

// InstrumentedStore wraps a Store with latency metrics, error accounting
// and debug logging. Errors from the wrapped store are tagged with
// ErrQuery or ErrMutation.
type InstrumentedStore struct {
	next   Store
	logger logger.Logger
}

// NewInstrumentedStore wraps next.
func NewInstrumentedStore(next Store, opts ...Option) *InstrumentedStore {
	s := &InstrumentedStore{
		next:   next,
		logger: logger.Get().Named("store"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Query implements Store.
func (s *InstrumentedStore) Query(ctx context.Context, filter Filter, last string, limit int) (Page, error) {
	start := time.Now()
	page, err := s.next.Query(ctx, filter, last, limit)
	metrics.RecordStoreLatency(metrics.OpQuery, sinceMs(start))
	if err != nil {
		metrics.RecordErrorByComponent("store", metrics.OpQuery)
		return Page{}, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	s.logger.Debug(ctx, "queried dataset",
		logger.String("dataset_id", filter.DatasetID),
		logger.String("last", last),
		logger.Int("items", len(page.Items)),
		logger.Int("count", page.Count),
	)
	return page, nil
}

// AddBoundingBox implements Store.
func (s *InstrumentedStore) AddBoundingBox(ctx context.Context, id model.BinaryID, label string, box model.NormalizedBox) (string, error) {
	start := time.Now()
	boxID, err := s.next.AddBoundingBox(ctx, id, label, box)
	metrics.RecordStoreLatency(metrics.OpAddBox, sinceMs(start))
	if err != nil {
		metrics.RecordErrorByComponent("store", metrics.OpAddBox)
		return "", fmt.Errorf("%w: add bounding box to %s: %w", ErrMutation, id.FileID, err)
	}

	metrics.RecordBoxCommitted()
	s.logger.Debug(ctx, "added bounding box",
		logger.String("file_id", id.FileID),
		logger.String("box_id", boxID),
		logger.String("label", label),
	)
	return boxID, nil
}

// AddTags implements Store.
func (s *InstrumentedStore) AddTags(ctx context.Context, ids []model.BinaryID, tags []string) error {
	start := time.Now()
	err := s.next.AddTags(ctx, ids, tags)
	metrics.RecordStoreLatency(metrics.OpAddTags, sinceMs(start))
	if err != nil {
		metrics.RecordErrorByComponent("store", metrics.OpAddTags)
		return fmt.Errorf("%w: add tags: %w", ErrMutation, err)
	}

	metrics.RecordTagCommitted()
	s.logger.Debug(ctx, "added tags", logger.Int("assets", len(ids)), logger.Any("tags", tags))
	return nil
}

// Close implements Store.
func (s *InstrumentedStore) Close() error {
	return s.next.Close()
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
