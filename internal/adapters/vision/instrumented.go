package vision

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/okian/autolabel/internal/domain/model"
	"github.com/okian/autolabel/pkg/logger"
	"github.com/okian/autolabel/pkg/metrics"
)

type instrumented struct {
	logger logger.Logger
}

func newInstrumented(opts []Option) instrumented {
	i := instrumented{logger: logger.Get().Named("vision")}
	for _, opt := range opts {
		opt(&i)
	}
	return i
}

// InstrumentedDetector records latency and failures of a Detector and tags
// its errors with ErrInference.
type InstrumentedDetector struct {
	instrumented
	next Detector
}

// NewInstrumentedDetector wraps next.
func NewInstrumentedDetector(next Detector, opts ...Option) *InstrumentedDetector {
	return &InstrumentedDetector{instrumented: newInstrumented(opts), next: next}
}

// Detections implements Detector.
func (d *InstrumentedDetector) Detections(ctx context.Context, img image.Image) ([]model.Detection, error) {
	start := time.Now()
	dets, err := d.next.Detections(ctx, img)
	metrics.RecordInferenceLatency(metrics.CapabilityDetection, sinceMs(start))
	if err != nil {
		metrics.RecordErrorByComponent("vision", metrics.CapabilityDetection)
		return nil, fmt.Errorf("%w: detection: %w", ErrInference, err)
	}

	d.logger.Debug(ctx, "detections received", logger.Int("count", len(dets)))
	return dets, nil
}

// InstrumentedClassifier records latency and failures of a Classifier and
// tags its errors with ErrInference.
type InstrumentedClassifier struct {
	instrumented
	next Classifier
}

// NewInstrumentedClassifier wraps next.
func NewInstrumentedClassifier(next Classifier, opts ...Option) *InstrumentedClassifier {
	return &InstrumentedClassifier{instrumented: newInstrumented(opts), next: next}
}

// Classifications implements Classifier.
func (c *InstrumentedClassifier) Classifications(ctx context.Context, img image.Image, prompt string, n int) ([]model.Classification, error) {
	start := time.Now()
	classes, err := c.next.Classifications(ctx, img, prompt, n)
	metrics.RecordInferenceLatency(metrics.CapabilityClassification, sinceMs(start))
	if err != nil {
		metrics.RecordErrorByComponent("vision", metrics.CapabilityClassification)
		return nil, fmt.Errorf("%w: classification: %w", ErrInference, err)
	}

	c.logger.Debug(ctx, "classifications received", logger.Int("count", len(classes)))
	return classes, nil
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
