package remote

import "errors"

var (
	ErrMissingName = errors.New("missing vision service name")
)
