// Package seed fills an empty live feed from a YAML fixture file or with
// generated demo lives.
package seed

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tinytelemetry/livelist/internal/model"
	"gopkg.in/yaml.v3"
)

// Entry is one live in a fixture file.
//
//	- nickname: kiki
//	  title: late night karaoke
//	- nickname: momo
type Entry struct {
	Nickname string `yaml:"nickname"`
	Title    string `yaml:"title"`
}

// Target is the store contract the seeder writes to.
type Target interface {
	model.LiveCounter
	InsertLives(items []model.LiveItem) error
}

// ParseFile reads fixture entries from a YAML file.
func ParseFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes fixture entries. Entries without a nickname are rejected.
func Parse(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Nickname) == "" {
			return nil, fmt.Errorf("seed: entry %d has no nickname", i)
		}
	}
	return entries, nil
}

// Items converts entries to live items with fresh ids. The first entry gets
// the oldest start time so it ends up last on the feed.
func Items(entries []Entry, now time.Time) []model.LiveItem {
	items := make([]model.LiveItem, len(entries))
	for i, e := range entries {
		items[i] = model.LiveItem{
			ID:        uuid.NewString(),
			UserInfo:  model.UserInfo{Nickname: strings.TrimSpace(e.Nickname)},
			Title:     model.StringPtr(strings.TrimSpace(e.Title)),
			StartedAt: now.Add(time.Duration(i-len(entries)) * time.Second),
		}
	}
	return items
}

// Demo generates n demo entries. Every seventh one has no title.
func Demo(n int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{Nickname: fmt.Sprintf("streamer%03d", i+1)}
		if (i+1)%7 != 0 {
			entries[i].Title = fmt.Sprintf("Live show #%d", i+1)
		}
	}
	return entries
}

// Apply inserts entries into target only when the feed is empty. It returns
// the number of lives written.
func Apply(target Target, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	count, err := target.TotalLiveCount()
	if err != nil {
		return 0, fmt.Errorf("seed: count: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	if err := target.InsertLives(Items(entries, time.Now())); err != nil {
		return 0, fmt.Errorf("seed: insert: %w", err)
	}
	return len(entries), nil
}
