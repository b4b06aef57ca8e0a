package config

const (
	defaultConfigPath   = "~/.config/osqueryctl/config.toml"
	projectConfigName   = "osqueryctl.toml"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	defaultOutputFormat = "table"
)

// Default returns a Config populated with repository defaults. The socket path
// is left empty so normalization can apply the OSQUERY_SOCKET fallback before
// the platform default.
func Default() Config {
	return Config{
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Output: Output{
			Format: defaultOutputFormat,
		},
	}
}
