package service

import "errors"

// Sentinel kinds for coordinator errors.
var (
	// ErrEmptyName rejects registration with a blank display name. The
	// transport ignores the request rather than acknowledging an error.
	ErrEmptyName = errors.New("empty player name")
)
