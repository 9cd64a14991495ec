package candidates

import "errors"

// Sentinel kinds for candidate queries.
var (
	ErrInvalidPage = errors.New("invalid candidate page")
)
