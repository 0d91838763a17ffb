package staging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bindery/internal/logging"
)

// CleanStaleResult contains the outcome of a stale session cleanup.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path string
	Err  error
}

// CleanStale removes staging sessions older than maxAge. Sessions normally
// disappear with their run; anything this finds was left behind by a crash.
func CleanStale(stagingRoot string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}
	log := logging.NewComponentLogger(logger, "staging")

	stagingRoot = strings.TrimSpace(stagingRoot)
	if stagingRoot == "" {
		return result
	}

	entries, err := os.ReadDir(stagingRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingRoot, Err: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), sessionPrefix) {
			continue
		}

		dirPath := filepath.Join(stagingRoot, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Err: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Err: err})
			log.Warn("failed to remove stale staging session",
				logging.String("path", dirPath),
				logging.Error(err),
			)
		} else {
			result.Removed = append(result.Removed, dirPath)
			log.Info("removed stale staging session",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
			)
		}
	}

	return result
}
