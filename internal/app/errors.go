package service

import "errors"

// Sentinel kinds for pipeline errors.
var (
	ErrEmptyDataset        = errors.New("empty dataset id")
	ErrUnknownDecodePolicy = errors.New("unknown decode error policy")
)
