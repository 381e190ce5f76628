package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/livelist/internal/model"
)

type memTarget struct {
	items []model.LiveItem
}

func (m *memTarget) TotalLiveCount() (int64, error) { return int64(len(m.items)), nil }

func (m *memTarget) InsertLives(items []model.LiveItem) error {
	m.items = append(m.items, items...)
	return nil
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lives.yml")
	fixture := "- nickname: kiki\n  title: late night karaoke\n- nickname: momo\n"
	if err := os.WriteFile(path, []byte(fixture), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	entries, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Nickname != "kiki" || entries[0].Title != "late night karaoke" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].Title != "" {
		t.Errorf("entry 1 title = %q, want empty", entries[1].Title)
	}
}

func TestParse_RejectsMissingNickname(t *testing.T) {
	_, err := Parse([]byte("- title: nobody\n"))
	if err == nil || !strings.Contains(err.Error(), "no nickname") {
		t.Fatalf("Parse error = %v, want missing nickname", err)
	}
}

func TestItems_AssignsIDsAndOrder(t *testing.T) {
	now := time.Date(2025, 9, 13, 0, 0, 0, 0, time.UTC)
	items := Items([]Entry{{Nickname: "a", Title: "t"}, {Nickname: "b"}}, now)

	if items[0].ID == "" || items[0].ID == items[1].ID {
		t.Fatalf("ids not unique: %q %q", items[0].ID, items[1].ID)
	}
	if !items[0].StartedAt.Before(items[1].StartedAt) {
		t.Error("first entry should start earlier")
	}
	if items[1].Title != nil {
		t.Errorf("empty title became %q, want nil", *items[1].Title)
	}
}

func TestApply_OnlyWhenEmpty(t *testing.T) {
	target := &memTarget{}

	n, err := Apply(target, Demo(10))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if n != 10 || len(target.items) != 10 {
		t.Fatalf("written = %d, stored = %d, want 10", n, len(target.items))
	}
	if target.items[6].Title != nil {
		t.Error("demo entry 7 should have no title")
	}

	n, err = Apply(target, Demo(5))
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if n != 0 || len(target.items) != 10 {
		t.Fatalf("second Apply wrote %d items into a non-empty feed", n)
	}
}
