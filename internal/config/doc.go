// Package config loads, normalizes, and validates osqueryctl configuration.
//
// It supplies platform defaults for the extension socket, expands user paths
// (including tilde shortcuts), reads TOML files, and honours environment
// fallbacks such as OSQUERY_SOCKET and OSQUERYD_PATH. Callers receive a Config
// whose socket path is always set and whose formats are canonical.
package config
