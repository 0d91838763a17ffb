package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users delete the catalog file to adopt the new schema.
const schemaVersion = 1

// ErrSchemaMismatch indicates the catalog schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run records one invocation of the reorganizer.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Mode       string
	InputDir   string
	OutputDir  string
	Discovered int
	Groups     int
	Archives   int
	Pages      int
	Skipped    int
	Status     string
}

// Archive records one produced output archive.
type Archive struct {
	ID      int64
	RunID   int64
	Path    string
	Title   string
	Volume  int
	Pages   int
	Sources int
}

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the catalog file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: catalog has version %d, expected %d (delete %s to rebuild)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// BeginRun inserts a running run row and returns it.
func (s *Store) BeginRun(ctx context.Context, mode, inputDir, outputDir string) (*Run, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, mode, input_dir, output_dir, status)
         VALUES (?, ?, ?, ?, ?)`,
		now.Format(time.RFC3339Nano), mode, inputDir, outputDir, StatusRunning,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Run{
		ID:        id,
		StartedAt: now,
		Mode:      mode,
		InputDir:  inputDir,
		OutputDir: outputDir,
		Status:    StatusRunning,
	}, nil
}

// FinishRun records the run's final counts and status.
func (s *Store) FinishRun(ctx context.Context, run *Run) error {
	run.FinishedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, discovered = ?, group_count = ?,
            archive_count = ?, page_count = ?, skipped_count = ?, status = ?
         WHERE id = ?`,
		run.FinishedAt.Format(time.RFC3339Nano),
		run.Discovered, run.Groups, run.Archives, run.Pages, run.Skipped,
		run.Status, run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run %d: %w", run.ID, err)
	}
	return nil
}

// RecordArchive inserts a produced archive row for the run.
func (s *Store) RecordArchive(ctx context.Context, runID int64, archive Archive) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO archives (run_id, path, title, volume, page_count, source_count)
         VALUES (?, ?, ?, ?, ?, ?)`,
		runID, archive.Path, archive.Title, archive.Volume, archive.Pages, archive.Sources,
	)
	if err != nil {
		return fmt.Errorf("insert archive: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, mode, input_dir, output_dir,
            discovered, group_count, archive_count, page_count, skipped_count, status
         FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started string
		var finished sql.NullString
		if err := rows.Scan(&run.ID, &started, &finished, &run.Mode, &run.InputDir, &run.OutputDir,
			&run.Discovered, &run.Groups, &run.Archives, &run.Pages, &run.Skipped, &run.Status); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if finished.Valid {
			run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ArchivesForRun returns the archives produced by the given run, in insert order.
func (s *Store) ArchivesForRun(ctx context.Context, runID int64) ([]Archive, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, path, title, volume, page_count, source_count
         FROM archives WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query archives: %w", err)
	}
	defer rows.Close()

	var archives []Archive
	for rows.Next() {
		var a Archive
		if err := rows.Scan(&a.ID, &a.RunID, &a.Path, &a.Title, &a.Volume, &a.Pages, &a.Sources); err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		archives = append(archives, a)
	}
	return archives, rows.Err()
}
