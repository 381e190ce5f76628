package model

import "context"

// LiveSource is the paged-fetch contract behind the Live List screen.
// An empty cursor requests the first page.
type LiveSource interface {
	FetchLives(ctx context.Context, cursor string, limit int) (Page, error)
}

// LiveCounter reports how many lives are currently listed.
type LiveCounter interface {
	TotalLiveCount() (int64, error)
}

// LiveWriter provides write operations for the live feed.
type LiveWriter interface {
	InsertLives(items []LiveItem) error
	EndLive(id string) error
}

// ReadAPI is the unified read contract for read surfaces (HTTP and socket RPC).
type ReadAPI interface {
	LiveSource
	LiveCounter
}
