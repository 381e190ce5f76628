package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tinytelemetry/livelist/internal/socketrpc"

	"github.com/spf13/viper"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/livelist/config.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Livelist - Live Feed Service\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	defaultDBPath := filepath.Join(home, ".local", "share", "livelist", "livelist.duckdb")

	v := viper.New()
	v.SetEnvPrefix("LIVELIST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("db-path", defaultDBPath)
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("seed-file", "")
	v.SetDefault("demo-lives", 0)
	v.SetDefault("max-page-size", defaultMaxPageSize)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "livelist", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		cfg.ConfigPath = ""
	}

	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	if cfg.DemoLives < 0 {
		return cfg, fmt.Errorf("invalid demo-lives: %d", cfg.DemoLives)
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = defaultMaxPageSize
	}

	cfg.DBPath = expandHome(home, cfg.DBPath)
	cfg.SeedFile = expandHome(home, cfg.SeedFile)
	cfg.SocketPath = expandHome(home, cfg.SocketPath)

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.APIPort))
	}

	return cfg, nil
}

func expandHome(home, path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
