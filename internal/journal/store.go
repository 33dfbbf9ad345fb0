// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journal keeps a SQLite record of conversion outcomes. Only
// metadata is stored: names, sizes, timings and failure kinds. Document
// bytes never reach the database.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/docflip/internal/convert"
	"github.com/pdiddy/docflip/pkg/types"
)

const (
	defaultLimit = 50

	// Fixed width so that text order is time order.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Store manages the journal database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the journal at cfg.Path and creates the schema
// if it does not exist.
func NewStore(cfg types.JournalConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
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
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversions (
			id           TEXT PRIMARY KEY,
			direction    TEXT NOT NULL,
			source_name  TEXT NOT NULL DEFAULT '',
			output_name  TEXT NOT NULL DEFAULT '',
			source_bytes INTEGER NOT NULL DEFAULT 0,
			output_bytes INTEGER NOT NULL DEFAULT 0,
			duration_ms  INTEGER NOT NULL DEFAULT 0,
			kind         TEXT NOT NULL DEFAULT '',
			detail       TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_created_at ON conversions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_kind ON conversions(kind)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record implements convert.Recorder. Recording the same id twice keeps the
// latest outcome.
func (s *Store) Record(ctx context.Context, o convert.Outcome) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO conversions
			(id, direction, source_name, output_name, source_bytes, output_bytes, duration_ms, kind, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, string(o.Direction), o.SourceName, o.OutputName,
		o.SourceBytes, o.OutputBytes, o.Duration.Milliseconds(),
		string(o.Kind), o.Detail, o.At.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("recording conversion %s: %w", o.ID, err)
	}
	return nil
}

// QueryOptions filters List.
type QueryOptions struct {
	Direction types.Direction
	// FailedOnly restricts results to conversions that returned an error.
	FailedOnly bool
	Since      time.Time
	Limit      int
}

// List returns recorded outcomes, newest first.
func (s *Store) List(ctx context.Context, opts QueryOptions) ([]convert.Outcome, error) {
	var (
		where []string
		args  []any
	)
	if opts.Direction != "" {
		where = append(where, "direction = ?")
		args = append(args, string(opts.Direction))
	}
	if opts.FailedOnly {
		where = append(where, "kind != ''")
	}
	if !opts.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}

	q := `SELECT id, direction, source_name, output_name, source_bytes, output_bytes,
		duration_ms, kind, detail, created_at FROM conversions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	q += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying conversions: %w", err)
	}
	defer rows.Close()

	var out []convert.Outcome
	for rows.Next() {
		var (
			o          convert.Outcome
			direction  string
			kind       string
			durationMS int64
			createdAt  string
		)
		if err := rows.Scan(&o.ID, &direction, &o.SourceName, &o.OutputName,
			&o.SourceBytes, &o.OutputBytes, &durationMS, &kind, &o.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning conversion: %w", err)
		}
		o.Direction = types.Direction(direction)
		o.Kind = convert.Kind(kind)
		o.Duration = time.Duration(durationMS) * time.Millisecond
		if o.At, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing timestamp of %s: %w", o.ID, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Summary counts recorded conversions.
type Summary struct {
	Succeeded int
	Failed    int
}

// Total returns the number of recorded conversions.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed
}

// Summarize counts every recorded conversion.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(kind = ''), 0), COALESCE(SUM(kind != ''), 0) FROM conversions`,
	).Scan(&sum.Succeeded, &sum.Failed)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing conversions: %w", err)
	}
	return sum, nil
}
