package app

import (
	"os"
	"strconv"

	"github.com/mcpportal/gateway/pkg/logging"
)

// Config is the resolved set of knobs the gateway runs with, read from
// environment variables per SPEC_FULL.md §6. The CLI defines no flags that
// override these fields.
type Config struct {
	Port      int
	Host      string
	LogLevel  logging.Level
	ConfigDir string // MCP_PORTAL_CONFIG_DIR override for the manual source
}

const (
	defaultPort = 8020
	defaultHost = "0.0.0.0"
)

// NewConfig reads MCP_PORTAL_* environment variables, falling back to the
// documented defaults for anything unset or unparsable.
func NewConfig() *Config {
	cfg := &Config{
		Port:     defaultPort,
		Host:     defaultHost,
		LogLevel: logging.LevelInfo,
	}

	if p := os.Getenv("MCP_PORTAL_PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			cfg.Port = n
		}
	}
	if h := os.Getenv("MCP_PORTAL_HOST"); h != "" {
		cfg.Host = h
	}
	if l := os.Getenv("MCP_PORTAL_LOG_LEVEL"); l != "" {
		cfg.LogLevel = logging.ParseLevel(l)
	}
	cfg.ConfigDir = os.Getenv("MCP_PORTAL_CONFIG_DIR")

	return cfg
}
