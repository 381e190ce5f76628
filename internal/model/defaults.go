package model

import "time"

// Shared defaults used by both the server and CLI binaries.
const (
	DefaultPageSize       = 20
	DefaultMaxPageSize    = 100
	DefaultRequestTimeout = 10 * time.Second
	DefaultAPIPort        = 3000
)
