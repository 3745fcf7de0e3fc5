// Package history records static export runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("export run not found")

// Run is one export run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	PagesDir   string
	OutputDir  string
	Succeeded  int
	Failed     int
	Pages      []PageResult
}

// OK reports whether the run counts as successful: at least one page
// succeeded, or there was nothing to export.
func (r Run) OK() bool {
	return r.Succeeded > 0 || r.Failed == 0
}

// PageResult is the outcome of exporting one page.
type PageResult struct {
	Name     string
	Source   string
	Output   string
	Duration time.Duration
	Error    string
}

// SQLiteStore stores runs in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS export_runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		pages_dir TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS export_pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES export_runs(id),
		name TEXT NOT NULL,
		source TEXT NOT NULL,
		output TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_export_pages_run ON export_pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_export_runs_started ON export_runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun stores run and its page results in one transaction.
func (s *SQLiteStore) RecordRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO export_runs (id, started_at, finished_at, pages_dir, output_dir, succeeded, failed) VALUES (?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.PagesDir, run.OutputDir, run.Succeeded, run.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, p := range run.Pages {
		var perr sql.NullString
		if p.Error != "" {
			perr = sql.NullString{String: p.Error, Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO export_pages (run_id, name, source, output, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?)",
			run.ID, p.Name, p.Source, p.Output, p.Duration.Milliseconds(), perr,
		)
		if err != nil {
			return fmt.Errorf("insert page %s: %w", p.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first, without page results.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started_at, finished_at, pages_dir, output_dir, succeeded, failed FROM export_runs ORDER BY started_at DESC, id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return runs, nil
}

// GetRun returns one run with its page results.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, started_at, finished_at, pages_dir, output_dir, succeeded, failed FROM export_runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, source, output, duration_ms, error FROM export_pages WHERE run_id = ? ORDER BY id", id)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p PageResult
		var ms int64
		var perr sql.NullString
		if err := rows.Scan(&p.Name, &p.Source, &p.Output, &ms, &perr); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		p.Duration = time.Duration(ms) * time.Millisecond
		p.Error = perr.String
		run.Pages = append(run.Pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return &run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var started, finished int64
	if err := row.Scan(&run.ID, &started, &finished, &run.PagesDir, &run.OutputDir, &run.Succeeded, &run.Failed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = time.UnixMilli(started)
	run.FinishedAt = time.UnixMilli(finished)
	return run, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
