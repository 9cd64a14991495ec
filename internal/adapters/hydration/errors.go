package hydration

import "errors"

// Sentinel kinds for hydration errors.
var (
	ErrUnavailable = errors.New("content hydration unavailable")
)
