// Package history keeps a SQLite index of completed evaluation runs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/kata/internal/domain/model"
)

// Store records completed runs and answers lookups for the CLI and HTTP API.
type Store interface {
	// Record persists a completed run.
	Record(ctx context.Context, run model.RunRecord) error

	// Get returns the run with the given id.
	// Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, id string) (model.RunRecord, error)

	// List returns up to limit runs, most recent first.
	List(ctx context.Context, limit int) ([]model.RunRecord, error)

	// Close releases the underlying database handle.
	Close() error
}

// SQLiteStore implements Store on a local SQLite file via the pure-Go driver.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (and creates if needed) the run index at path.
// The schema is created on open.
func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		dataset TEXT NOT NULL,
		rule_set_id TEXT NOT NULL,
		plugin TEXT NOT NULL,
		overall_score INTEGER NOT NULL,
		phase_scores TEXT NOT NULL,
		classification TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Record persists a completed run.
func (s *SQLiteStore) Record(ctx context.Context, run model.RunRecord) error {
	if run.ID == "" {
		return ErrEmptyID
	}

	scores, err := json.Marshal(run.PhaseScores)
	if err != nil {
		return fmt.Errorf("encoding phase scores: %w", err)
	}

	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, dataset, rule_set_id, plugin, overall_score,
			phase_scores, classification, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Dataset, run.RuleSetID, run.Plugin, run.OverallScore,
		string(scores), run.Classification, run.Duration.Milliseconds(),
		created.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	return nil
}

// Get returns the run with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, dataset, rule_set_id, plugin, overall_score,
			phase_scores, classification, duration_ms, created_at
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return model.RunRecord{}, fmt.Errorf("loading run %s: %w", id, err)
	}

	return run, nil
}

// List returns up to limit runs, most recent first. A non-positive limit
// returns everything.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]model.RunRecord, error) {
	query := `SELECT id, dataset, rule_set_id, plugin, overall_score,
			phase_scores, classification, duration_ms, created_at
		FROM runs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (model.RunRecord, error) {
	var (
		run        model.RunRecord
		scores     string
		durationMS int64
		created    string
	)
	if err := sc.Scan(&run.ID, &run.Dataset, &run.RuleSetID, &run.Plugin,
		&run.OverallScore, &scores, &run.Classification, &durationMS, &created); err != nil {
		return model.RunRecord{}, err
	}

	if err := json.Unmarshal([]byte(scores), &run.PhaseScores); err != nil {
		return model.RunRecord{}, fmt.Errorf("decoding phase scores: %w", err)
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond

	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return model.RunRecord{}, fmt.Errorf("parsing created_at: %w", err)
	}
	run.CreatedAt = ts

	return run, nil
}
