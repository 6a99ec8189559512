package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrQuery         = errors.New("dataset query failed")
	ErrMutation      = errors.New("dataset mutation failed")
	ErrCursorStalled = errors.New("pagination cursor did not advance")
	ErrInvalidLimit  = errors.New("invalid page size")
)
