package model

import (
	"fmt"
	"image"
	"math"
)

// boxTolerance bounds the difference between two normalized coordinates
// considered equal.
const boxTolerance = 1e-6

// Box is a bounding box in pixel coordinates. Max is exclusive, as in image.Rectangle.
type Box struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.XMin, b.YMin, b.XMax, b.YMax)
}

// Empty reports whether the box has no area.
func (b Box) Empty() bool {
	return b.XMax <= b.XMin || b.YMax <= b.YMin
}

// Clamp restricts the box to an image of width x height pixels.
func (b Box) Clamp(width, height int) Box {
	return Box{
		XMin: clampInt(b.XMin, 0, width),
		YMin: clampInt(b.YMin, 0, height),
		XMax: clampInt(b.XMax, 0, width),
		YMax: clampInt(b.YMax, 0, height),
	}
}

// Normalize divides x coordinates by width and y coordinates by height.
func (b Box) Normalize(width, height int) (NormalizedBox, error) {
	if width <= 0 || height <= 0 {
		return NormalizedBox{}, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	w, h := float64(width), float64(height)
	return NormalizedBox{
		XMin: float64(b.XMin) / w,
		YMin: float64(b.YMin) / h,
		XMax: float64(b.XMax) / w,
		YMax: float64(b.YMax) / h,
	}, nil
}

// NormalizedBox is a bounding box relative to the image size, each coordinate in [0,1].
type NormalizedBox struct {
	XMin float64 `json:"x_min_normalized"`
	YMin float64 `json:"y_min_normalized"`
	XMax float64 `json:"x_max_normalized"`
	YMax float64 `json:"y_max_normalized"`
}

// Valid reports whether 0 <= min <= max <= 1 on both axes.
func (n NormalizedBox) Valid() bool {
	return 0 <= n.XMin && n.XMin <= n.XMax && n.XMax <= 1 &&
		0 <= n.YMin && n.YMin <= n.YMax && n.YMax <= 1
}

// Matches compares two boxes coordinate by coordinate within a small tolerance.
func (n NormalizedBox) Matches(o NormalizedBox) bool {
	return math.Abs(n.XMin-o.XMin) < boxTolerance &&
		math.Abs(n.YMin-o.YMin) < boxTolerance &&
		math.Abs(n.XMax-o.XMax) < boxTolerance &&
		math.Abs(n.YMax-o.YMax) < boxTolerance
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
