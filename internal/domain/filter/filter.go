// Package filter selects the detections worth classifying.
package filter

import (
	"github.com/okian/autolabel/internal/domain/model"
)

// Default filter configuration.
const (
	DefaultThreshold = 0.3
	DefaultLabel     = "food"
)

// Drops counts the detections rejected by each rule. A detection failing
// both rules is counted once, as low confidence.
type Drops struct {
	LowConfidence int
	LabelRejected int
}

// Total returns the number of rejected detections.
func (d Drops) Total() int {
	return d.LowConfidence + d.LabelRejected
}

// Filter keeps detections whose confidence is strictly above the threshold
// and whose class name is in the allow-list.
type Filter struct {
	threshold float64
	allowed   map[string]struct{}
}

// New creates a Filter. Without options it keeps "food" above 0.3.
func New(opts ...Option) *Filter {
	f := &Filter{
		threshold: DefaultThreshold,
		allowed:   map[string]struct{}{DefaultLabel: {}},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Threshold returns the confidence threshold.
func (f *Filter) Threshold() float64 {
	return f.threshold
}

// Allows reports whether a single detection passes both rules.
func (f *Filter) Allows(d model.Detection) bool {
	return d.Confidence > f.threshold && f.allowsLabel(d.ClassName)
}

// Apply returns the surviving detections in their original order.
func (f *Filter) Apply(dets []model.Detection) ([]model.Detection, Drops) {
	var drops Drops
	kept := make([]model.Detection, 0, len(dets))
	for _, d := range dets {
		switch {
		case d.Confidence <= f.threshold:
			drops.LowConfidence++
		case !f.allowsLabel(d.ClassName):
			drops.LabelRejected++
		default:
			kept = append(kept, d)
		}
	}
	return kept, drops
}

func (f *Filter) allowsLabel(name string) bool {
	_, ok := f.allowed[name]
	return ok
}
