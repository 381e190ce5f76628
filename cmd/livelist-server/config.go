package main

import (
	"time"

	"github.com/tinytelemetry/livelist/internal/model"
)

const (
	defaultBindHost     = "127.0.0.1"
	defaultAPIPort      = model.DefaultAPIPort
	defaultQueryTimeout = 30 * time.Second
	defaultMaxPageSize  = model.DefaultMaxPageSize
)

// appConfig is internal runtime configuration for the feed service.
type appConfig struct {
	DBPath       string        `mapstructure:"db-path"`
	APIEnabled   bool          `mapstructure:"api-enabled"`
	APIPort      int           `mapstructure:"api-port"`
	APIAddr      string        `mapstructure:"api-addr"`
	SocketPath   string        `mapstructure:"socket-path"`
	QueryTimeout time.Duration `mapstructure:"query-timeout"`
	SeedFile     string        `mapstructure:"seed-file"`
	DemoLives    int           `mapstructure:"demo-lives"`
	MaxPageSize  int           `mapstructure:"max-page-size"`
	ConfigPath   string        `mapstructure:"-"` // not from config file
}
