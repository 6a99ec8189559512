// Package vision defines the inference contracts used by the labeling
// pipeline: object detection on full images and classification of crops.
package vision

import (
	"context"
	"image"

	"github.com/okian/autolabel/internal/domain/model"
)

// Detector finds candidate objects in an image.
type Detector interface {
	// Detections returns the boxes found in img, in pixel coordinates.
	Detections(ctx context.Context, img image.Image) ([]model.Detection, error)
}

// Classifier labels an image region.
type Classifier interface {
	// Classifications returns up to n labels for img, most relevant first.
	// prompt steers classifiers that accept free-form instructions.
	Classifications(ctx context.Context, img image.Image, prompt string, n int) ([]model.Classification, error)
}
