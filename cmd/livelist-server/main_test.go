package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/livelist/internal/duckdb"
	"github.com/tinytelemetry/livelist/internal/model"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if !cfg.APIEnabled {
		t.Error("api should be enabled by default")
	}
	if cfg.APIPort != model.DefaultAPIPort {
		t.Errorf("APIPort = %d, want %d", cfg.APIPort, model.DefaultAPIPort)
	}
	if cfg.APIAddr != "127.0.0.1:3000" {
		t.Errorf("APIAddr = %q", cfg.APIAddr)
	}
	if cfg.QueryTimeout != defaultQueryTimeout {
		t.Errorf("QueryTimeout = %v", cfg.QueryTimeout)
	}
	if cfg.MaxPageSize != model.DefaultMaxPageSize {
		t.Errorf("MaxPageSize = %d", cfg.MaxPageSize)
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath = %q for a missing file", cfg.ConfigPath)
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
api-port: 4100
query-timeout: 5s
demo-lives: 12
max-page-size: 40
db-path: ~/feeds/test.duckdb
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.APIAddr != "127.0.0.1:4100" {
		t.Errorf("APIAddr = %q", cfg.APIAddr)
	}
	if cfg.QueryTimeout != 5*time.Second {
		t.Errorf("QueryTimeout = %v", cfg.QueryTimeout)
	}
	if cfg.DemoLives != 12 || cfg.MaxPageSize != 40 {
		t.Errorf("DemoLives = %d, MaxPageSize = %d", cfg.DemoLives, cfg.MaxPageSize)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "feeds", "test.duckdb"); cfg.DBPath != want {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, want)
	}
	if cfg.ConfigPath != path {
		t.Errorf("ConfigPath = %q, want %q", cfg.ConfigPath, path)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("LIVELIST_API_PORT", "4200")
	t.Setenv("LIVELIST_API_ENABLED", "false")

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.APIPort != 4200 || cfg.APIEnabled {
		t.Errorf("APIPort = %d, APIEnabled = %v", cfg.APIPort, cfg.APIEnabled)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"port zero", "api-port: 0\n"},
		{"port too large", "api-port: 70000\n"},
		{"negative demo lives", "demo-lives: -1\n"},
		{"bad yaml", "api-port: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yml", tt.body)
			if _, err := loadConfig(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSeedStore(t *testing.T) {
	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	path := writeFile(t, t.TempDir(), "lives.yml", `
- nickname: kiki
  title: late night karaoke
- nickname: momo
`)

	n, err := seedStore(appConfig{SeedFile: path, DemoLives: 50}, store)
	if err != nil {
		t.Fatalf("seedStore: %v", err)
	}
	if n != 2 {
		t.Fatalf("seeded %d lives, want 2 (seed file wins over demo lives)", n)
	}

	n, err = seedStore(appConfig{DemoLives: 10}, store)
	if err != nil {
		t.Fatalf("seedStore again: %v", err)
	}
	if n != 0 {
		t.Errorf("non-empty store was seeded again with %d lives", n)
	}

	total, err := store.TotalLiveCount()
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("TotalLiveCount = %d, want 2", total)
	}
}

func TestSeedStore_Demo(t *testing.T) {
	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	n, err := seedStore(appConfig{DemoLives: 30}, store)
	if err != nil || n != 30 {
		t.Fatalf("seedStore = %d, %v; want 30", n, err)
	}
}

func TestSeedStore_MissingFile(t *testing.T) {
	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := seedStore(appConfig{SeedFile: filepath.Join(t.TempDir(), "nope.yml")}, store); err == nil {
		t.Fatal("expected error for missing seed file")
	}
}

// brokenListener fails every Accept with a permanent error.
type brokenListener struct {
	net.Listener
}

func (l brokenListener) Accept() (net.Conn, error) {
	return nil, errors.New("listener broke")
}

func testServeConfig(t *testing.T) appConfig {
	t.Helper()
	sock := filepath.Join(os.TempDir(), fmt.Sprintf("livelist-serve-%d.sock", time.Now().UnixNano()))
	t.Cleanup(func() { os.Remove(sock) })
	return appConfig{
		APIEnabled:  true,
		APIAddr:     "127.0.0.1:0",
		SocketPath:  sock,
		MaxPageSize: model.DefaultMaxPageSize,
	}
}

func TestServeFeed_ListenerFailureEndsServe(t *testing.T) {
	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	cfg := testServeConfig(t)
	done := make(chan error, 1)
	go func() {
		done <- serveFeed(context.Background(), cfg, store, brokenListener{ln}, nil)
	}()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "listener broke") {
			t.Fatalf("serveFeed = %v, want the listener error", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serveFeed kept running after the API listener failed")
	}

	if _, err := os.Stat(cfg.SocketPath); !os.IsNotExist(err) {
		t.Errorf("socket file left behind after failure: %v", err)
	}
}

func TestServeFeed_StopsOnCancel(t *testing.T) {
	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	cfg := testServeConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	readyCh := make(chan appConfig, 1)
	done := make(chan error, 1)
	go func() {
		done <- serveFeed(ctx, cfg, store, nil, func(c appConfig) { readyCh <- c })
	}()

	var bound appConfig
	select {
	case bound = <-readyCh:
	case err := <-done:
		t.Fatalf("serveFeed returned before ready: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serveFeed never became ready")
	}

	resp, err := http.Get("http://" + bound.APIAddr + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serveFeed after cancel = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serveFeed did not stop after cancel")
	}
}
