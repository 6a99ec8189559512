package vision

import "errors"

// Sentinel kinds for vision errors.
var (
	ErrInference = errors.New("inference failed")
)
