package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Socket.Path == "" {
		return errors.New("socket.path must be set")
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q (want debug, info, warn, or error)", c.Logging.Level)
	}
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("output.format: unsupported value %q (want table or json)", c.Output.Format)
	}
}
