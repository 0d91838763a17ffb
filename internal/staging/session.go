package staging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"bindery/internal/logging"
)

const (
	sessionPrefix = "session-"
	lockFileName  = "bindery.lock"
)

// Session is a run-scoped staging directory. It holds a lock on the staging
// root for its lifetime so concurrent runs do not interleave, and Release
// removes the whole tree.
type Session struct {
	dir      string
	lock     *flock.Flock
	logger   *slog.Logger
	released bool
}

// Acquire locks stagingRoot and creates a fresh session directory beneath it.
// Callers must Release the session on every exit path.
func Acquire(stagingRoot string, logger *slog.Logger) (*Session, error) {
	stagingRoot = strings.TrimSpace(stagingRoot)
	if stagingRoot == "" {
		return nil, errors.New("staging root not configured")
	}
	if err := os.MkdirAll(stagingRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create staging root: %w", err)
	}

	lock := flock.New(filepath.Join(stagingRoot, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire staging lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another bindery run is using this staging area")
	}

	dir := filepath.Join(stagingRoot, sessionPrefix+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	return &Session{
		dir:    dir,
		lock:   lock,
		logger: logging.NewComponentLogger(logger, "staging"),
	}, nil
}

// Dir returns the session's root directory.
func (s *Session) Dir() string {
	return s.dir
}

// Release removes the session tree and drops the staging lock. It is
// best-effort and safe to call more than once.
func (s *Session) Release() {
	if s == nil || s.released {
		return
	}
	s.released = true

	if err := os.RemoveAll(s.dir); err != nil {
		s.logger.Warn("failed to remove staging session",
			logging.String("path", s.dir),
			logging.Error(err),
		)
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release staging lock", logging.Error(err))
	}
}
