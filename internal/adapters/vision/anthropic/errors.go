package anthropic

import "errors"

var (
	ErrMissingAPIKey = errors.New("missing anthropic api key")
)
