package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/invest-sim/internal/montecarlo"
	"github.com/wonny/invest-sim/pkg/config"
	"github.com/wonny/invest-sim/pkg/database"
	"github.com/wonny/invest-sim/pkg/logger"
)

var (
	// ErrNotFound no run with the requested id
	ErrNotFound = errors.New("run not found")
	// ErrDuplicate a run with the same id already exists
	ErrDuplicate = errors.New("run already exists")
)

// Summary 목록 조회용 실행 요약
type Summary struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Label          string    `json:"label,omitempty"`
	InputHash      string    `json:"input_hash"`
	Years          int       `json:"years"`
	NumSimulations int       `json:"num_simulations"`
	Seed           int64     `json:"seed"`
	HasMonteCarlo  bool      `json:"has_monte_carlo"`
	FinalMean      float64   `json:"final_mean"`
	P5             float64   `json:"p5"`
	P50            float64   `json:"p50"`
	P95            float64   `json:"p95"`
	ProbSuccess    *float64  `json:"prob_success,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
}

// Run 저장된 실행 (요약 + 전체 결과 JSON)
type Run struct {
	Summary
	Result json.RawMessage `json:"result"`
}

// Decode unmarshals the stored result
func (r *Run) Decode() (*montecarlo.Result, error) {
	var res montecarlo.Result
	if err := json.Unmarshal(r.Result, &res); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", r.ID, err)
	}
	return &res, nil
}

// Filter 목록 조회 조건
type Filter struct {
	InputHash string
	Limit     int // 0 = 50
	Offset    int
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return 50
	}
	return min(f.Limit, 500)
}

// RunStore persists simulation runs
// ⭐ SSOT: 실행 결과 저장/조회는 이 인터페이스로만
type RunStore interface {
	Save(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, filter Filter) ([]Summary, error)
	// Prune deletes runs created before cutoff and returns how many were removed
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// NewRun builds a storable run from a result. Series-sized fields are kept in the JSON.
func NewRun(res *montecarlo.Result, inputHash, label string) (*Run, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	s := Summary{
		ID:             res.RunID,
		CreatedAt:      res.CreatedAt.UTC().Truncate(time.Millisecond),
		Label:          label,
		InputHash:      inputHash,
		Years:          res.Years,
		NumSimulations: res.NumSimulations,
		Seed:           res.Seed,
		HasMonteCarlo:  res.HasMonteCarlo,
		FinalMean:      res.FinalBalanceMean(),
		DurationMs:     res.Duration.Milliseconds(),
	}
	if res.Stats != nil {
		s.P5, s.P50, s.P95 = res.Stats.P5, res.Stats.P50, res.Stats.P95
	} else {
		s.P5, s.P50, s.P95 = s.FinalMean, s.FinalMean, s.FinalMean
	}
	if res.Risk != nil {
		p := res.Risk.ProbSuccess
		s.ProbSuccess = &p
	}
	return &Run{Summary: s, Result: data}, nil
}

// Open returns the store selected by cfg.Store.Driver
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (RunStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		st, err := NewPostgres(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		log.Info("run store: postgres")
		return st, nil
	case "sqlite":
		st, err := NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.WithField("path", cfg.Store.SQLitePath).Info("run store: sqlite")
		return st, nil
	case "none", "":
		log.Info("run store: in-memory")
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
