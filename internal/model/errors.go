package model

import "errors"

var (
	// ErrNotFound is returned when a live id does not exist or has already ended.
	ErrNotFound = errors.New("live not found")
	// ErrInvalidCursor is returned for a continuation token the server did not issue.
	ErrInvalidCursor = errors.New("invalid cursor")
)
