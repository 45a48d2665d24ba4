package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wonny/invest-sim/pkg/database"
)

var postgresMigrations = []string{
	`CREATE SCHEMA IF NOT EXISTS sim`,
	`CREATE TABLE IF NOT EXISTS sim.runs (
		id              TEXT PRIMARY KEY,
		created_at      TIMESTAMPTZ NOT NULL,
		label           TEXT NOT NULL DEFAULT '',
		input_hash      TEXT NOT NULL,
		years           INTEGER NOT NULL,
		num_simulations INTEGER NOT NULL,
		seed            BIGINT NOT NULL,
		has_monte_carlo BOOLEAN NOT NULL,
		final_mean      DOUBLE PRECISION NOT NULL,
		p5              DOUBLE PRECISION NOT NULL,
		p50             DOUBLE PRECISION NOT NULL,
		p95             DOUBLE PRECISION NOT NULL,
		prob_success    DOUBLE PRECISION,
		duration_ms     BIGINT NOT NULL,
		result          JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON sim.runs (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_input_hash ON sim.runs (input_hash)`,
}

// Postgres RunStore on the shared pgx pool
type Postgres struct {
	db *database.DB
}

// NewPostgres applies the schema and returns the store. The store owns db.
func NewPostgres(ctx context.Context, db *database.DB) (*Postgres, error) {
	if err := db.Migrate(ctx, postgresMigrations...); err != nil {
		return nil, fmt.Errorf("failed to migrate run store: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Save implements RunStore
func (p *Postgres) Save(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO sim.runs (
			id, created_at, label, input_hash, years, num_simulations, seed,
			has_monte_carlo, final_mean, p5, p50, p95, prob_success, duration_ms, result
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := p.db.Pool.Exec(ctx, query,
		run.ID, run.CreatedAt, run.Label, run.InputHash, run.Years, run.NumSimulations, run.Seed,
		run.HasMonteCarlo, run.FinalMean, run.P5, run.P50, run.P95, run.ProbSuccess, run.DurationMs, string(run.Result),
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

const postgresSummaryColumns = `
	id, created_at, label, input_hash, years, num_simulations, seed,
	has_monte_carlo, final_mean, p5, p50, p95, prob_success, duration_ms`

func scanPostgresSummary(row pgx.Row, extra ...interface{}) (Summary, error) {
	var s Summary
	dest := []interface{}{
		&s.ID, &s.CreatedAt, &s.Label, &s.InputHash, &s.Years, &s.NumSimulations, &s.Seed,
		&s.HasMonteCarlo, &s.FinalMean, &s.P5, &s.P50, &s.P95, &s.ProbSuccess, &s.DurationMs,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Summary{}, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return s, nil
}

// Get implements RunStore
func (p *Postgres) Get(ctx context.Context, id string) (*Run, error) {
	row := p.db.Pool.QueryRow(ctx,
		`SELECT `+postgresSummaryColumns+`, result::text FROM sim.runs WHERE id = $1`, id)

	var result string
	sum, err := scanPostgresSummary(row, &result)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &Run{Summary: sum, Result: []byte(result)}, nil
}

// List implements RunStore, newest first
func (p *Postgres) List(ctx context.Context, f Filter) ([]Summary, error) {
	query := `SELECT ` + postgresSummaryColumns + ` FROM sim.runs
		WHERE ($1 = '' OR input_hash = $1)
		ORDER BY created_at DESC, id ASC
		LIMIT $2 OFFSET $3`

	rows, err := p.db.Pool.Query(ctx, query, f.InputHash, f.limit(), max(f.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		sum, err := scanPostgresSummary(rows)
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
func (p *Postgres) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.db.Pool.Exec(ctx, `DELETE FROM sim.runs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close implements RunStore
func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}
