package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tinytelemetry/livelist/internal/model"
	"github.com/tinytelemetry/livelist/internal/socketrpc"
	"github.com/spf13/viper"
)

const (
	sourceSocket = "socket"
	sourceHTTP   = "http"

	defaultAPIURL = "http://127.0.0.1:3000"
)

// cliConfig holds only client-relevant configuration.
type cliConfig struct {
	Source                 string        `mapstructure:"source"`
	SocketPath             string        `mapstructure:"socket-path"`
	APIURL                 string        `mapstructure:"api-url"`
	PageSize               int           `mapstructure:"page-size"`
	RequestTimeout         time.Duration `mapstructure:"request-timeout"`
	FooterWhileLoadingOnly bool          `mapstructure:"footer-while-loading-only"`
	InlineLoadMoreErrors   bool          `mapstructure:"inline-load-more-errors"`
	ReverseScrollWheel     bool          `mapstructure:"reverse-scroll-wheel"`
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("LIVELIST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("source", sourceSocket)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("api-url", defaultAPIURL)
	v.SetDefault("page-size", model.DefaultPageSize)
	v.SetDefault("request-timeout", model.DefaultRequestTimeout)
	v.SetDefault("footer-while-loading-only", false)
	v.SetDefault("inline-load-more-errors", true)
	v.SetDefault("reverse-scroll-wheel", false)

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

	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))
	switch cfg.Source {
	case sourceSocket, sourceHTTP:
	default:
		return cfg, fmt.Errorf("invalid source %q (want %q or %q)", cfg.Source, sourceSocket, sourceHTTP)
	}
	if cfg.PageSize <= 0 {
		return cfg, fmt.Errorf("invalid page-size: %d", cfg.PageSize)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = model.DefaultRequestTimeout
	}
	if strings.HasPrefix(cfg.SocketPath, "~/") {
		cfg.SocketPath = filepath.Join(home, cfg.SocketPath[2:])
	}

	return cfg, nil
}
