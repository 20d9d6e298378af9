// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records conversion runs in a SQLite database so a user
// can see what was converted, where it went and why a run failed.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pdf2pages/pkg/types"
)

const defaultLimit = 20

// Run is one recorded conversion.
type Run struct {
	ID          int64             `json:"id" yaml:"id"`
	Source      string            `json:"source" yaml:"source"`
	OutputDir   string            `json:"output_dir" yaml:"output_dir"`
	Format      types.ImageFormat `json:"format" yaml:"format"`
	DPI         int               `json:"dpi" yaml:"dpi"`
	Prefix      string            `json:"prefix" yaml:"prefix"`
	TotalPages  int               `json:"total_pages" yaml:"total_pages"`
	Succeeded   bool              `json:"succeeded" yaml:"succeeded"`
	ErrorDetail string            `json:"error_detail,omitempty" yaml:"error_detail,omitempty"`
	CreatedAt   time.Time         `json:"created_at" yaml:"created_at"`
	Files       []types.SavedFile `json:"files,omitempty" yaml:"files,omitempty"`
}

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			format TEXT NOT NULL,
			dpi INTEGER NOT NULL,
			prefix TEXT NOT NULL,
			total_pages INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			error_detail TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			page INTEGER NOT NULL,
			filename TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			PRIMARY KEY (run_id, page)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores the outcome of one conversion and returns its run ID.
func (s *Store) Record(ctx context.Context, req types.ConversionRequest, res types.ConversionResult, at time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	r, err := tx.ExecContext(ctx,
		`INSERT INTO runs (source, output_dir, format, dpi, prefix, total_pages, succeeded, error_detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.SourcePath, req.OutputDirectory, string(req.ImageFormat), req.ResolutionDPI,
		req.FilenamePrefix, res.TotalPages, res.Succeeded, res.ErrorDetail,
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := r.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	for i, f := range res.SavedFiles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO files (run_id, page, filename, size_bytes) VALUES (?, ?, ?, ?)`,
			id, i+1, f.Filename, f.SizeBytes,
		); err != nil {
			return 0, fmt.Errorf("inserting file %s: %w", f.Filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// Recent returns up to limit runs, newest first, with their files.
// A non-positive limit uses the default of 20.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, output_dir, format, dpi, prefix, total_pages, succeeded, COALESCE(error_detail, ''), created_at
		 FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run     Run
			format  string
			created string
		)
		if err := rows.Scan(&run.ID, &run.Source, &run.OutputDir, &format, &run.DPI, &run.Prefix,
			&run.TotalPages, &run.Succeeded, &run.ErrorDetail, &created); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.Format = types.ImageFormat(format)
		if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parsing run %d timestamp: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	for i := range runs {
		files, err := s.files(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Files = files
	}
	return runs, nil
}

func (s *Store) files(ctx context.Context, runID int64) ([]types.SavedFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, size_bytes FROM files WHERE run_id = ? ORDER BY page`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying files for run %d: %w", runID, err)
	}
	defer rows.Close()

	var files []types.SavedFile
	for rows.Next() {
		var f types.SavedFile
		if err := rows.Scan(&f.Filename, &f.SizeBytes); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
