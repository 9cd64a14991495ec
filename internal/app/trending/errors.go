package trending

import "errors"

// ErrFatal marks a run that stopped before its batch loop could proceed.
// The queue retries runs that fail with it.
var ErrFatal = errors.New("recalculation failed")
