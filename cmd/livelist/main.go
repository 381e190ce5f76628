package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tinytelemetry/livelist/internal/apiclient"
	"github.com/tinytelemetry/livelist/internal/feed"
	"github.com/tinytelemetry/livelist/internal/model"
	"github.com/tinytelemetry/livelist/internal/socketrpc"
	"github.com/tinytelemetry/livelist/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mattn/go-isatty"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var socketPath string
	var apiURL string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/livelist/config.yml)")
	flag.StringVar(&socketPath, "socket", "", "override socket path to connect to the livelist service")
	flag.StringVar(&apiURL, "api", "", "fetch over HTTP from this API URL instead of the socket")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Livelist CLI - Live List Client\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if socketPath != "" {
		cfg.Source = sourceSocket
		cfg.SocketPath = socketPath
	}
	if apiURL != "" {
		cfg.Source = sourceHTTP
		cfg.APIURL = apiURL
	}

	os.Exit(run(cfg, os.Stdout, os.Stderr))
}

// run opens the source, shows the feed and returns the process exit code.
// Output that is not a terminal gets the first page as plain lines.
func run(cfg cliConfig, stdout, stderr io.Writer) int {
	source, label, closeSource, err := openSource(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer closeSource()

	ctl := feed.NewController(source, cfg.PageSize)

	if !isTerminal(stdout) {
		if err := printFirstPage(stdout, ctl, cfg); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := runTUI(ctl, cfg, label); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// openSource builds the live source selected by cfg. The socket client
// connects lazily so the screen can show a retryable error when the service
// is down.
func openSource(cfg cliConfig) (model.LiveSource, string, func(), error) {
	switch cfg.Source {
	case sourceHTTP:
		client, err := apiclient.New(cfg.APIURL, cfg.RequestTimeout)
		if err != nil {
			return nil, "", nil, fmt.Errorf("invalid api-url %q: %w", cfg.APIURL, err)
		}
		return client, "HTTP", func() {}, nil
	default:
		client := socketrpc.New(cfg.SocketPath)
		return client, "Socket", func() { _ = client.Close() }, nil
	}
}

// printFirstPage fetches one page and writes it as "nickname<TAB>title" lines.
func printFirstPage(w io.Writer, ctl *feed.Controller, cfg cliConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	ctl.FetchInitialData(ctx)
	state := ctl.State()
	if state.Phase == feed.PhaseError {
		return errors.New(state.Message)
	}
	for _, item := range ctl.Items() {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", item.UserInfo.Nickname, model.TitleOrDefault(item)); err != nil {
			return err
		}
	}
	return nil
}

func runTUI(ctl *feed.Controller, cfg cliConfig, label string) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	zone.NewGlobal()
	defer zone.Close()

	screen := tui.NewListModel(ctl, tui.Options{
		RequestTimeout:         cfg.RequestTimeout,
		FooterWhileLoadingOnly: cfg.FooterWhileLoadingOnly,
		InlineLoadMoreErrors:   cfg.InlineLoadMoreErrors,
		ReverseScrollWheel:     cfg.ReverseScrollWheel,
		SourceLabel:            label,
	}, zone.DefaultManager)
	defer screen.Close()

	app := tui.NewApp(tui.NewListPage(screen))

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// configureRuntimeLogger sends log output to a file so it never draws over
// the screen.
func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "livelist")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}

	f, err := os.OpenFile(filepath.Join(logDir, "livelist.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}
