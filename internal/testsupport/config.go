package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"osqueryctl/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t   testing.TB
	cfg *config.Config
}

// NewConfig produces a config pointing at a fresh short socket path.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfgVal := config.Default()
	cfgVal.Socket.Path = ShortSocketPath(t)
	cfgVal.Logging.Level = "error"

	builder := &configBuilder{t: t, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithSocketPath overrides the socket path on the test config.
func WithSocketPath(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Socket.Path = path
	}
}

// WithDaemonBinary sets the osqueryd binary used for spawned daemons.
func WithDaemonBinary(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Daemon.Binary = path
	}
}

// WithOutputFormat sets the default result rendering.
func WithOutputFormat(format string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.Format = format
	}
}

// WriteConfig encodes cfg to a config.toml inside a temp directory and
// returns its path.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
