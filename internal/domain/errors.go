package domain

import "errors"

var (
	ErrUnknownIndicator = errors.New("unknown incident indicator")
	ErrUnknownOutcome   = errors.New("unknown bet outcome")
	ErrInvalidDate      = errors.New("invalid month/day")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrLockHeld         = errors.New("lock already held")
	ErrLockLost         = errors.New("lock lost")
)
