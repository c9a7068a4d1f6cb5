// Package logging assembles structured slog loggers and formatting helpers used
// across songrank.
//
// It owns the configurable console/JSON handlers, routes output to stderr and
// the state-directory log file, and exposes context-aware helpers so engine
// and gateway code tag log lines with the active ranking, entry IDs and
// request correlation IDs. The package also provides a no-op logger for tests
// and wiring code that cannot fail.
package logging
