package model

import (
	"strings"
	"time"
)

// NoTitle is shown in place of a missing live title.
const NoTitle = "No title"

// UserInfo describes the streamer behind a live item.
type UserInfo struct {
	Nickname string `json:"nickname"`
}

// LiveItem is one entry of the live feed. Items are immutable once fetched
// and are identified by ID.
type LiveItem struct {
	ID        string    `json:"id"`
	UserInfo  UserInfo  `json:"userInfo"`
	Title     *string   `json:"title,omitempty"`
	StartedAt time.Time `json:"startedAt"`
}

// TitleOrDefault returns the item title, or NoTitle when it is absent or blank.
func TitleOrDefault(item LiveItem) string {
	if item.Title == nil || strings.TrimSpace(*item.Title) == "" {
		return NoTitle
	}
	return *item.Title
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Page is one slice of the feed plus the continuation token for the next one.
// An empty NextCursor marks the end of the feed.
type Page struct {
	Items      []LiveItem `json:"items"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// HasMore reports whether another page can be requested.
func (p Page) HasMore() bool {
	return p.NextCursor != ""
}
