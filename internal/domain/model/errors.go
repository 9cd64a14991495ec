package model

import "errors"

// Sentinel kinds for model validation.
var (
	ErrInvalidParameters = errors.New("invalid job parameters")
)
