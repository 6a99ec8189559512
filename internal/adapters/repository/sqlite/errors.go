package sqlite

import "errors"

// Sentinel kinds for SQLite store errors.
var (
	ErrAssetNotFound = errors.New("asset not found")
)
