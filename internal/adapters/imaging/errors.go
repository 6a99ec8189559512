package imaging

import "errors"

// Sentinel kinds for imaging errors.
var (
	ErrDecode        = errors.New("image decode failed")
	ErrEncode        = errors.New("image encode failed")
	ErrInvalidRegion = errors.New("invalid crop region")
)
