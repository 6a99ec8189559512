package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrInvalidDimensions = errors.New("invalid image dimensions")
)
