package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"songrank/internal/config"
)

// LogFileName is the file written inside the configured log directory.
const LogFileName = "songrank.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Console receives human-facing output; nil disables it.
	Console io.Writer
	// FilePath, when set, receives the same records in Format.
	FilePath    string
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))
	addSource := opts.Development || levelVar.Level() <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}
	if format != "console" && format != "json" {
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	var handlers []slog.Handler
	if opts.Console != nil {
		handlers = append(handlers, newHandler(format, opts.Console, levelVar, addSource))
	}
	if path := strings.TrimSpace(opts.FilePath); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		handlers = append(handlers, newHandler(format, file, levelVar, addSource))
	}

	return slog.New(teeHandler(handlers...)), nil
}

// NewFromConfig creates the CLI logger writing to the log file under the
// state directory and, when console is non-nil, to console as well.
func NewFromConfig(cfg *config.Config, console io.Writer) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", Console: console})
	}
	return New(Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Console:  console,
		FilePath: filepath.Join(cfg.LogDir(), LogFileName),
	})
}

// MaxLogBytes is the size at which the active log file is rotated.
const MaxLogBytes = 8 << 20

// PruneFromConfig rotates an oversized log file and applies the configured
// retention to the log directory.
func PruneFromConfig(logger *slog.Logger, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if err := RotateIfLarge(cfg.LogDir(), MaxLogBytes); err != nil {
		WarnWithContext(logger, "log rotation failed", "log_rotation_failed", Error(err))
	}
	PruneLogs(logger, cfg.LogDir(), cfg.Logging.RetentionDays)
}

func newHandler(format string, w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	if format == "json" {
		return newJSONHandler(w, lvl, addSource)
	}
	return newPrettyHandler(w, lvl, addSource)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
