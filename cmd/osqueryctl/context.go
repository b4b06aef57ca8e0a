package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"osqueryctl/internal/client"
	"osqueryctl/internal/config"
	"osqueryctl/internal/logging"
)

type commandContext struct {
	socketFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) socketPath() string {
	if c.socketFlag != nil && strings.TrimSpace(*c.socketFlag) != "" {
		return strings.TrimSpace(*c.socketFlag)
	}
	if cfg, err := c.ensureConfig(); err == nil {
		return cfg.Socket.Path
	}
	return client.New().SocketPath()
}

func (c *commandContext) commandLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		c.logger = logging.NewNop()
		cfg, err := c.ensureConfig()
		if err != nil {
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging disabled: %v\n", err)
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) newHandle() *client.Handle {
	return client.New().WithSocket(c.socketPath()).WithLogger(c.commandLogger())
}

// withHandle runs fn against a handle for the configured socket. When spawn is
// set the handle first starts osqueryd; SIGINT or SIGTERM abandons the wait.
// The handle is closed before withHandle returns, and a teardown failure is
// reported if fn itself succeeded.
func (c *commandContext) withHandle(cmd *cobra.Command, spawn spawnOptions, fn func(*client.Handle) error) (err error) {
	h := c.newHandle()
	defer func() {
		if closeErr := h.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if spawn.enabled {
		binary, binErr := c.daemonBinary(spawn.binary)
		if binErr != nil {
			return binErr
		}
		signalCtx, cancel := signal.NotifyContext(contextOrBackground(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		if spawnErr := h.SpawnProcessContext(signalCtx, binary); spawnErr != nil {
			return fmt.Errorf("spawn osqueryd: %w", spawnErr)
		}
	}

	return wrapConnectError(fn(h), h.SocketPath())
}

func (c *commandContext) daemonBinary(override string) (string, error) {
	if binary := strings.TrimSpace(override); binary != "" {
		if strings.HasPrefix(binary, "~") {
			return config.ExpandPath(binary)
		}
		return binary, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if cfg.Daemon.Binary == "" {
		return "", errors.New("no osqueryd binary configured; pass --osqueryd, set daemon.binary, or export OSQUERYD_PATH")
	}
	return cfg.Daemon.Binary, nil
}

func (c *commandContext) outputJSON(flag bool) bool {
	if flag {
		return true
	}
	cfg, err := c.ensureConfig()
	return err == nil && cfg.Output.Format == "json"
}

func wrapConnectError(err error, socket string) error {
	if err == nil || !errors.Is(err, client.ErrConnect) {
		return err
	}
	switch {
	case errors.Is(err, syscall.ENOENT) || errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("connect to osqueryd: socket %s not found; start osqueryd with --extensions_socket %s or pass --spawn", socket, socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to osqueryd: socket %s refused the connection; verify osqueryd is running", socket)
	default:
		return err
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// contextOrBackground keeps commands usable when invoked without Execute.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
