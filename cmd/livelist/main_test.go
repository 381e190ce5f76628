package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/livelist/internal/apiclient"
	"github.com/tinytelemetry/livelist/internal/feed"
	"github.com/tinytelemetry/livelist/internal/model"
	"github.com/tinytelemetry/livelist/internal/socketrpc"
)

type fakeSource struct {
	page model.Page
	err  error
}

func (f *fakeSource) FetchLives(context.Context, string, int) (model.Page, error) {
	return f.page, f.err
}

func (f *fakeSource) TotalLiveCount() (int64, error) { return int64(len(f.page.Items)), nil }

func TestLoadCLIConfig_Defaults(t *testing.T) {
	cfg, err := loadCLIConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("loadCLIConfig: %v", err)
	}
	if cfg.Source != sourceSocket {
		t.Errorf("Source = %q, want %q", cfg.Source, sourceSocket)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.PageSize != model.DefaultPageSize {
		t.Errorf("PageSize = %d", cfg.PageSize)
	}
	if cfg.RequestTimeout != model.DefaultRequestTimeout {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if !cfg.InlineLoadMoreErrors || cfg.FooterWhileLoadingOnly {
		t.Errorf("InlineLoadMoreErrors = %v, FooterWhileLoadingOnly = %v", cfg.InlineLoadMoreErrors, cfg.FooterWhileLoadingOnly)
	}
}

func TestLoadCLIConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	body := `
source: HTTP
api-url: http://feeds.local:8080
page-size: 50
request-timeout: 3s
footer-while-loading-only: true
inline-load-more-errors: false
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadCLIConfig(path)
	if err != nil {
		t.Fatalf("loadCLIConfig: %v", err)
	}
	if cfg.Source != sourceHTTP || cfg.APIURL != "http://feeds.local:8080" {
		t.Errorf("Source = %q, APIURL = %q", cfg.Source, cfg.APIURL)
	}
	if cfg.PageSize != 50 || cfg.RequestTimeout != 3*time.Second {
		t.Errorf("PageSize = %d, RequestTimeout = %v", cfg.PageSize, cfg.RequestTimeout)
	}
	if !cfg.FooterWhileLoadingOnly || cfg.InlineLoadMoreErrors {
		t.Errorf("FooterWhileLoadingOnly = %v, InlineLoadMoreErrors = %v", cfg.FooterWhileLoadingOnly, cfg.InlineLoadMoreErrors)
	}
}

func TestLoadCLIConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown source", "source: carrier-pigeon\n"},
		{"zero page size", "page-size: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			if err := os.WriteFile(path, []byte(tt.body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := loadCLIConfig(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestOpenSource(t *testing.T) {
	cfg := cliConfig{Source: sourceHTTP, APIURL: "http://127.0.0.1:3000", RequestTimeout: time.Second}
	src, label, closeFn, err := openSource(cfg)
	if err != nil {
		t.Fatalf("openSource(http): %v", err)
	}
	defer closeFn()
	if _, ok := src.(*apiclient.Client); !ok || label != "HTTP" {
		t.Errorf("http source = %T %q", src, label)
	}

	cfg = cliConfig{Source: sourceSocket, SocketPath: filepath.Join(t.TempDir(), "livelist.sock")}
	src, label, closeFn, err = openSource(cfg)
	if err != nil {
		t.Fatalf("openSource(socket): %v", err)
	}
	defer closeFn()
	if _, ok := src.(*socketrpc.Client); !ok || label != "Socket" {
		t.Errorf("socket source = %T %q", src, label)
	}
}

func TestPrintFirstPage(t *testing.T) {
	src := &fakeSource{page: model.Page{
		Items: []model.LiveItem{
			{ID: "1", UserInfo: model.UserInfo{Nickname: "kiki"}, Title: model.StringPtr("late night karaoke")},
			{ID: "2", UserInfo: model.UserInfo{Nickname: "momo"}},
		},
		NextCursor: "next",
	}}
	ctl := feed.NewController(src, 20)

	var buf bytes.Buffer
	if err := printFirstPage(&buf, ctl, cliConfig{RequestTimeout: time.Second}); err != nil {
		t.Fatalf("printFirstPage: %v", err)
	}
	want := "kiki\tlate night karaoke\nmomo\t" + model.NoTitle + "\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestPrintFirstPage_Error(t *testing.T) {
	ctl := feed.NewController(&fakeSource{err: errors.New("feed offline")}, 20)

	var buf bytes.Buffer
	err := printFirstPage(&buf, ctl, cliConfig{RequestTimeout: time.Second})
	if err == nil || !strings.Contains(err.Error(), "feed offline") {
		t.Fatalf("err = %v, want feed offline", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %q on error", buf.String())
	}
}

func TestRun_PrintsFirstPageFromSocket(t *testing.T) {
	sock := filepath.Join(os.TempDir(), fmt.Sprintf("livelist-run-%d.sock", time.Now().UnixNano()))
	srv := socketrpc.NewServer(sock, &fakeSource{page: model.Page{
		Items: []model.LiveItem{{ID: "a", UserInfo: model.UserInfo{Nickname: "kiki"}}},
	}})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	var stdout, stderr bytes.Buffer
	cfg := cliConfig{Source: sourceSocket, SocketPath: sock, PageSize: 20, RequestTimeout: 2 * time.Second}
	if code := run(cfg, &stdout, &stderr); code != 0 {
		t.Fatalf("run = %d, stderr %q", code, stderr.String())
	}
	if got, want := stdout.String(), "kiki\t"+model.NoTitle+"\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestRun_ExitCodeOnFailure(t *testing.T) {
	tests := []struct {
		name string
		cfg  cliConfig
	}{
		{"bad api url", cliConfig{Source: sourceHTTP, APIURL: "://nope", RequestTimeout: time.Second}},
		{"service down", cliConfig{
			Source:         sourceSocket,
			SocketPath:     filepath.Join(t.TempDir(), "missing.sock"),
			PageSize:       20,
			RequestTimeout: time.Second,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.cfg, &stdout, &stderr); code != 1 {
				t.Fatalf("run = %d, want 1", code)
			}
			if !strings.HasPrefix(stderr.String(), "Error: ") {
				t.Errorf("stderr = %q, want an Error: line", stderr.String())
			}
			if stdout.Len() != 0 {
				t.Errorf("stdout = %q on failure", stdout.String())
			}
		})
	}
}
