package postgres

import "errors"

// Sentinel kinds for relational store errors.
var (
	ErrConnect = errors.New("postgres connect failed")
	ErrQuery   = errors.New("postgres query failed")
)
