package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/livelist/internal/duckdb"
	"github.com/tinytelemetry/livelist/internal/httpserver"
	"github.com/tinytelemetry/livelist/internal/seed"
	"github.com/tinytelemetry/livelist/internal/socketrpc"
	"golang.org/x/sync/errgroup"
)

// runServer opens the store, seeds it when asked to, and serves the live feed
// over the HTTP API and the unix socket until interrupted.
func runServer(cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	defer store.Close()

	seeded, err := seedStore(cfg, store)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		cleanupSocket(cfg.SocketPath)
		os.Exit(1)
	}()

	return serveFeed(ctx, cfg, store, nil, func(cfg appConfig) {
		total, err := store.TotalLiveCount()
		if err != nil {
			log.Printf("server: counting lives: %v", err)
		}
		printStartupBanner(cfg, total, seeded)
	})
}

// serveFeed runs the HTTP API and the socket server until ctx is done or one
// of them fails, then stops both. apiListener, when set, is served instead of
// binding cfg.APIAddr. ready runs once both servers accept connections.
func serveFeed(ctx context.Context, cfg appConfig, store *duckdb.Store, apiListener net.Listener, ready func(appConfig)) error {
	var apiServer *httpserver.Server
	if cfg.APIEnabled {
		apiServer = httpserver.NewServer(cfg.APIAddr, store)
		apiServer.SetMaxPageSize(cfg.MaxPageSize)
		if apiListener != nil {
			apiServer.StartOn(apiListener)
		} else if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		cfg.APIAddr = apiServer.Addr()
	}

	sockServer := socketrpc.NewServer(cfg.SocketPath, store)
	sockServer.SetMaxPageSize(cfg.MaxPageSize)
	if err := sockServer.Start(); err != nil {
		if apiServer != nil {
			_ = apiServer.Stop()
		}
		return fmt.Errorf("failed to start socket server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if apiServer != nil {
		g.Go(func() error {
			if err := apiServer.Wait(); err != nil {
				return fmt.Errorf("API server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		if err := sockServer.Wait(); err != nil {
			return fmt.Errorf("socket server: %w", err)
		}
		return nil
	})

	// Shutdown on signal or on the first server failure.
	g.Go(func() error {
		<-gctx.Done()
		if apiServer != nil {
			if err := apiServer.Stop(); err != nil {
				log.Printf("server: API shutdown: %v", err)
			}
		}
		sockServer.Stop()
		return nil
	})

	if ready != nil {
		ready(cfg)
	}

	err := g.Wait()
	if err != nil {
		log.Printf("server: stopped with error: %v", err)
	}
	return err
}

// seedStore fills an empty store from the seed file, or with demo lives when
// no file is configured. It returns the number of lives written.
func seedStore(cfg appConfig, store *duckdb.Store) (int, error) {
	var entries []seed.Entry
	switch {
	case cfg.SeedFile != "":
		parsed, err := seed.ParseFile(cfg.SeedFile)
		if err != nil {
			return 0, fmt.Errorf("failed to load seed file: %w", err)
		}
		entries = parsed
	case cfg.DemoLives > 0:
		entries = seed.Demo(cfg.DemoLives)
	default:
		return 0, nil
	}

	n, err := seed.Apply(store, entries)
	if err != nil {
		return 0, fmt.Errorf("failed to seed store: %w", err)
	}
	if n > 0 {
		log.Printf("seed: inserted %d lives", n)
	} else {
		log.Printf("seed: store already has lives, skipped %d entries", len(entries))
	}
	return n, nil
}

func cleanupSocket(path string) {
	if path != "" {
		os.Remove(path)
	}
}

func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "livelist")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logPath := filepath.Join(logDir, "livelist-server.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig, total int64, seeded int) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╦  ╦╦  ╦╔═╗╦  ╦╔═╗╔╦╗
    ║  ║╚╗╔╝║╣ ║  ║╚═╗ ║
    ╩═╝╩ ╚╝ ╚═╝╩═╝╩╚═╝ ╩ `)

	var lines []string
	lines = append(lines, "", logo, "    "+dim.Render("v"+version), "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator, "")

	lines = append(lines, bold.Render("    Gateway"), "")
	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, fmt.Sprintf("    %s  Unix Socket    %s", check, cyan.Render(shortenPath(cfg.SocketPath))))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Feed"), "")
	lines = append(lines, fmt.Sprintf("    %s  Storage        %s", check, dim.Render(shortenPath(cfg.DBPath))))
	lines = append(lines, fmt.Sprintf("    %s  Lives          %s", check, dim.Render(fmt.Sprintf("%d", total))))
	lines = append(lines, fmt.Sprintf("    %s  Page Limit     %s", check, dim.Render(fmt.Sprintf("%d", cfg.MaxPageSize))))
	switch {
	case seeded > 0 && cfg.SeedFile != "":
		lines = append(lines, fmt.Sprintf("    %s  Seed           %s", check, dim.Render(fmt.Sprintf("%d from %s", seeded, shortenPath(cfg.SeedFile)))))
	case seeded > 0:
		lines = append(lines, fmt.Sprintf("    %s  Seed           %s", check, dim.Render(fmt.Sprintf("%d demo lives", seeded))))
	default:
		lines = append(lines, fmt.Sprintf("    %s  Seed           %s", dot, dim.Render("none")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
