package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneLogs removes regular files in dir whose name starts with LogFileName
// and whose modification time is older than retentionDays. The active log
// file is never removed. A retentionDays value of 0 disables pruning.
func PruneLogs(logger *slog.Logger, dir string, retentionDays int) int {
	if retentionDays <= 0 || strings.TrimSpace(dir) == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == LogFileName || !strings.HasPrefix(name, LogFileName) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions on the state directory"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}

// RotateIfLarge renames the active log file aside once it exceeds maxBytes so
// retention can age it out.
func RotateIfLarge(dir string, maxBytes int64) error {
	path := filepath.Join(dir, LogFileName)
	info, err := os.Stat(path)
	if err != nil || info.Size() <= maxBytes {
		return nil
	}
	return os.Rename(path, path+"."+time.Now().UTC().Format("20060102T150405"))
}
