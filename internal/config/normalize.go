package config

import (
	"fmt"
	"os"
	"strings"

	"osqueryctl/internal/controlchan"
)

const pipePrefix = `\\.\pipe\`

func (c *Config) normalize() error {
	if err := c.normalizeSocket(); err != nil {
		return err
	}
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeOutput()
	return nil
}

func (c *Config) normalizeSocket() error {
	c.Socket.Path = strings.TrimSpace(c.Socket.Path)
	if c.Socket.Path == "" {
		if value, ok := os.LookupEnv("OSQUERY_SOCKET"); ok {
			c.Socket.Path = strings.TrimSpace(value)
		}
	}
	if c.Socket.Path == "" {
		c.Socket.Path = controlchan.DefaultAddress
		return nil
	}
	if strings.HasPrefix(c.Socket.Path, pipePrefix) {
		return nil
	}
	var err error
	if c.Socket.Path, err = expandPath(c.Socket.Path); err != nil {
		return fmt.Errorf("socket.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeDaemon() error {
	c.Daemon.Binary = strings.TrimSpace(c.Daemon.Binary)
	if c.Daemon.Binary == "" {
		if value, ok := os.LookupEnv("OSQUERYD_PATH"); ok {
			c.Daemon.Binary = strings.TrimSpace(value)
		}
	}
	// Bare names are resolved through PATH at spawn time.
	if !strings.ContainsAny(c.Daemon.Binary, `/\`) && !strings.HasPrefix(c.Daemon.Binary, "~") {
		return nil
	}
	var err error
	if c.Daemon.Binary, err = expandPath(c.Daemon.Binary); err != nil {
		return fmt.Errorf("daemon.binary: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeOutput() {
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
}
