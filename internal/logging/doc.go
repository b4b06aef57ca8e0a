// Package logging assembles structured slog loggers used across osqueryctl.
//
// It owns the console and JSON handlers, level parsing, and output routing,
// and exposes attr helpers plus a no-op logger for tests and library callers
// that never configure logging.
package logging
