package leaderboard

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrInvalidRange = errors.New("invalid leaderboard range")
	ErrWrite        = errors.New("leaderboard write failed")
	ErrRead         = errors.New("leaderboard read failed")
)
