package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS simulation_runs (
		id              TEXT PRIMARY KEY,
		created_at      INTEGER NOT NULL,
		label           TEXT NOT NULL DEFAULT '',
		input_hash      TEXT NOT NULL,
		years           INTEGER NOT NULL,
		num_simulations INTEGER NOT NULL,
		seed            INTEGER NOT NULL,
		has_monte_carlo INTEGER NOT NULL,
		final_mean      REAL NOT NULL,
		p5              REAL NOT NULL,
		p50             REAL NOT NULL,
		p95             REAL NOT NULL,
		prob_success    REAL,
		duration_ms     INTEGER NOT NULL,
		result          TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON simulation_runs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_input_hash ON simulation_runs(input_hash);
`

// SQLite file-backed RunStore. created_at is kept as unix milliseconds.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and creates) the database at path
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Save implements RunStore
func (s *SQLite) Save(ctx context.Context, run *Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO simulation_runs (
			id, created_at, label, input_hash, years, num_simulations, seed,
			has_monte_carlo, final_mean, p5, p50, p95, prob_success, duration_ms, result
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.CreatedAt.UnixMilli(), run.Label, run.InputHash, run.Years, run.NumSimulations, run.Seed,
		run.HasMonteCarlo, run.FinalMean, run.P5, run.P50, run.P95, run.ProbSuccess, run.DurationMs, string(run.Result),
	)

	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) && sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

const sqliteSummaryColumns = `
	id, created_at, label, input_hash, years, num_simulations, seed,
	has_monte_carlo, final_mean, p5, p50, p95, prob_success, duration_ms`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteSummary(row scanner, extra ...interface{}) (Summary, error) {
	var (
		s         Summary
		createdMs int64
		prob      sql.NullFloat64
	)
	dest := []interface{}{
		&s.ID, &createdMs, &s.Label, &s.InputHash, &s.Years, &s.NumSimulations, &s.Seed,
		&s.HasMonteCarlo, &s.FinalMean, &s.P5, &s.P50, &s.P95, &prob, &s.DurationMs,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Summary{}, err
	}
	s.CreatedAt = time.UnixMilli(createdMs).UTC()
	if prob.Valid {
		s.ProbSuccess = &prob.Float64
	}
	return s, nil
}

// Get implements RunStore
func (s *SQLite) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteSummaryColumns+`, result FROM simulation_runs WHERE id = ?`, id)

	var result string
	sum, err := scanSQLiteSummary(row, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &Run{Summary: sum, Result: []byte(result)}, nil
}

// List implements RunStore, newest first
func (s *SQLite) List(ctx context.Context, f Filter) ([]Summary, error) {
	var (
		where strings.Builder
		args  []interface{}
	)
	if f.InputHash != "" {
		where.WriteString(" WHERE input_hash = ?")
		args = append(args, f.InputHash)
	}
	args = append(args, f.limit(), max(f.Offset, 0))

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteSummaryColumns+` FROM simulation_runs`+where.String()+
			` ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		sum, err := scanSQLiteSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Prune implements RunStore
func (s *SQLite) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM simulation_runs WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

// Close implements RunStore
func (s *SQLite) Close() error {
	return s.db.Close()
}
