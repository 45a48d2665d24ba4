package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/invest-sim/internal/compound"
	"github.com/wonny/invest-sim/internal/events"
	"github.com/wonny/invest-sim/internal/params"
	"github.com/wonny/invest-sim/internal/risk"
	"github.com/wonny/invest-sim/pkg/logger"
)

// ProgressFunc receives the number of finished scenarios out of total.
// Calls are serialised by the engine.
type ProgressFunc func(done, total int)

// Engine Monte Carlo 실행기
// ⭐ SSOT: 실행 간 공유 상태 없음. 무위험 수익률은 risk.RateProvider로 주입
type Engine struct {
	cfg   Config
	log   *logger.Logger
	risk  *risk.Engine
	clock func() time.Time
}

// NewEngine 새 엔진. provider는 nil 가능 (그 경우 Input.RiskFreeRate 없으면 Risk=nil)
func NewEngine(cfg Config, log *logger.Logger, provider risk.RateProvider) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		cfg:   cfg.withDefaults(),
		log:   log,
		risk:  risk.NewEngine(provider),
		clock: time.Now,
	}
}

// WithClock replaces the time source used for seeding and timestamps
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// Run 시뮬레이션 실행
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	return e.RunWithProgress(ctx, in, nil)
}

// RunWithProgress Run + 진행률 콜백
func (e *Engine) RunWithProgress(ctx context.Context, in Input, progress ProgressFunc) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulation cancelled: %w", err)
	}

	started := e.clock()
	dist, _ := params.ParseDistribution(string(in.Distribution))
	seed := in.Seed
	if seed == 0 {
		seed = e.cfg.Seed
	}
	if seed == 0 {
		seed = started.UnixNano()
	}

	months := in.Months()
	monthly := consolidate(in, months)

	res := &Result{
		RunID:          uuid.New().String(),
		CreatedAt:      started,
		Seed:           seed,
		Years:          in.Years,
		Months:         months,
		Goal:           in.Goal,
		NumSimulations: in.NumSimulations,
		Distribution:   dist,
		EventsApplied:  !monthly.Empty(),
	}

	log := e.log.WithFields(map[string]interface{}{
		"run_id":      res.RunID,
		"months":      months,
		"simulations": in.NumSimulations,
		"seed":        seed,
	})

	// 1. Deterministic path: values as given, only sampled values are clamped
	capital := in.InitialCapital.Value()
	contribution := in.MonthlyContribution.Value()
	rate := in.AnnualRate.Value()

	det, ins, flows := trajectory(capital, contribution, compound.MonthlyRate(rate), monthly)
	res.Deterministic = det
	res.Insolvency = ins
	res.Totals = compound.ComputeTotals(capital, flows.Contributions, flows.Deposits, flows.Withdrawn, det[months])
	res.Analysis = compound.Analyze(det, res.Totals, in.Goal)
	res.Sensitivities = compound.ComputeSensitivities(capital, rate, float64(in.Years), contribution)

	if !in.IsProbabilistic() {
		res.NumSimulations = 0
		res.YearlyProjection = yearly(res, monthly)
		res.Duration = e.clock().Sub(started)
		log.Info("deterministic projection finished")
		return res, nil
	}

	// 2. Sampling on one seeded stream, before any parallel work
	log.Info("monte carlo run started")
	rng := params.NewRand(seed, nil)
	n := in.NumSimulations
	samples := &Samples{
		InitialCapital:      params.ClampNonNegative(in.InitialCapital.Sample(n, dist, rng)),
		MonthlyContribution: params.ClampNonNegative(in.MonthlyContribution.Sample(n, dist, rng)),
		AnnualRate:          params.ClampNonNegative(in.AnnualRate.Sample(n, dist, rng)),
	}

	// 3. Trajectories, column-major: cols[t][i]
	cols, insolvent, err := e.simulate(ctx, samples, monthly, progress)
	if err != nil {
		log.WithError(err).Warn("monte carlo run aborted")
		return nil, err
	}

	// 4. Aggregation
	series, err := e.aggregate(ctx, cols)
	if err != nil {
		log.WithError(err).Warn("monte carlo run aborted")
		return nil, err
	}

	final := append([]float64(nil), cols[months]...)
	stats := risk.CalculatePercentileStats(final)

	res.HasMonteCarlo = true
	res.Series = series
	res.Samples = samples
	res.FinalBalances = final
	res.Stats = &stats
	res.InsolventScenarios = insolvent
	res.Representative = representatives(stats, final, samples)

	implicit, err := risk.ExtractImplicitParameters(stats, capital, contribution, in.Years)
	if err != nil {
		log.WithError(err).Warn("implicit parameters skipped")
	}
	res.Implicit = implicit

	metrics, err := e.risk.Metrics(ctx, final, in.Goal, res.Totals.TotalInvested, float64(in.Years), in.RiskFreeRate)
	switch {
	case errors.Is(err, risk.ErrNoRiskFreeRate):
		log.Debug("risk metrics skipped: no risk-free rate")
	case err != nil:
		log.WithError(err).Warn("risk metrics skipped")
	default:
		res.Risk = metrics
	}

	res.YearlyProjection = yearly(res, monthly)
	res.Duration = e.clock().Sub(started)

	log.WithFields(map[string]interface{}{
		"mean":        stats.Mean,
		"p5":          stats.P5,
		"p95":         stats.P95,
		"insolvent":   insolvent,
		"duration_ms": res.Duration.Milliseconds(),
	}).Info("monte carlo run finished")

	return res, nil
}

// simulate runs every scenario; rows are split into batches across workers.
// Each batch owns a disjoint row range, so cols needs no locking.
func (e *Engine) simulate(ctx context.Context, s *Samples, monthly events.Monthly, progress ProgressFunc) ([][]float64, int, error) {
	n := len(s.InitialCapital)
	months := monthly.Months()

	cols := make([][]float64, months+1)
	for t := range cols {
		cols[t] = make([]float64, n)
	}

	var (
		insolvent atomic.Int64
		done      int
		mu        sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for lo := 0; lo < n; lo += e.cfg.BatchSize {
		lo, hi := lo, min(lo+e.cfg.BatchSize, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("simulation cancelled: %w", err)
			}

			for i := lo; i < hi; i++ {
				row, ins, _ := trajectory(s.InitialCapital[i], s.MonthlyContribution[i],
					compound.MonthlyRate(s.AnnualRate[i]), monthly)
				if ins != nil {
					insolvent.Add(1)
				}
				for t, v := range row {
					cols[t][i] = math.Max(0, v)
				}
			}

			if progress != nil {
				mu.Lock()
				done += hi - lo
				progress(done, n)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return cols, int(insolvent.Load()), nil
}

// aggregate reduces every month column to its summary; months are split across workers.
func (e *Engine) aggregate(ctx context.Context, cols [][]float64) (*Series, error) {
	series := newSeries(len(cols) - 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for t := range cols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("aggregation cancelled: %w", err)
			}
			series.set(t, summarize(cols[t]))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return series, nil
}

// =============================================================================
// helpers
// =============================================================================

func consolidate(in Input, months int) events.Monthly {
	if in.Events == nil {
		return events.Consolidate(nil, in.StartDate, months)
	}
	return in.Events.Consolidate(in.StartDate, months)
}

// trajectory uses the closed form when there are no events and the
// sequential event-aware scan otherwise.
func trajectory(capital, contribution, monthlyRate float64, monthly events.Monthly) ([]float64, *events.Insolvency, events.Flows) {
	months := monthly.Months()
	if monthly.Empty() {
		row := compound.ClosedFormTrajectory(capital, contribution, monthlyRate, months)
		return row, nil, events.Flows{Contributions: contribution * float64(months)}
	}

	row := make([]float64, months+1)
	row[0] = capital
	ins, flows := events.ApplyWithFlows(row, contribution, monthlyRate, monthly)
	return row, ins, flows
}

// yearly reads month y*12 from every series for y in 0..years
func yearly(res *Result, monthly events.Monthly) []YearRow {
	rows := make([]YearRow, 0, res.Years+1)
	for y := 0; y <= res.Years; y++ {
		t := y * 12
		row := YearRow{Year: y, Month: t, Deterministic: res.Deterministic[t]}
		if y > 0 {
			row.Deposits, row.Withdrawals = monthly.YearTotals(y)
		}
		if res.Series != nil {
			m := res.Series.At(t)
			row.Stats = &m
		}
		rows = append(rows, row)
	}
	return rows
}

// representatives picks, for each target, the scenario whose final balance is closest.
// Ties resolve to the lowest index.
func representatives(stats risk.PercentileStats, final []float64, s *Samples) []RepresentativeScenario {
	targets := []struct {
		label string
		value float64
	}{
		{"P5", stats.P5},
		{"P25", stats.P25},
		{"P50", stats.P50},
		{"P75", stats.P75},
		{"P95", stats.P95},
		{"MEAN", stats.Mean},
	}

	out := make([]RepresentativeScenario, 0, len(targets))
	for _, tg := range targets {
		best, bestDist := 0, math.Inf(1)
		for i, v := range final {
			if d := math.Abs(v - tg.value); d < bestDist {
				best, bestDist = i, d
			}
		}
		out = append(out, RepresentativeScenario{
			Label:               tg.label,
			Target:              tg.value,
			Index:               best,
			InitialCapital:      s.InitialCapital[best],
			MonthlyContribution: s.MonthlyContribution[best],
			AnnualRate:          s.AnnualRate[best],
			FinalBalance:        final[best],
		})
	}
	return out
}
