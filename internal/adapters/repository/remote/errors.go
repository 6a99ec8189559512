package remote

import "errors"

// Sentinel kinds for remote store errors.
var (
	ErrMissingCredentials = errors.New("missing data API credentials")
)
