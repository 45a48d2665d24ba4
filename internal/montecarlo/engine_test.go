package montecarlo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/invest-sim/internal/compound"
	"github.com/wonny/invest-sim/internal/events"
	"github.com/wonny/invest-sim/internal/params"
	"github.com/wonny/invest-sim/internal/risk"
	"github.com/wonny/invest-sim/pkg/logger"
)

// goldenMean is E[final] for referenceInput, integrated numerically over the
// clipped normal rate distribution.
const goldenMean = 126297.61

var start = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

func referenceInput() Input {
	return Input{
		InitialCapital:      params.Span(8000, 10000, 12000),
		MonthlyContribution: params.Fixed(500),
		AnnualRate:          params.Span(6, 10, 14),
		Years:               10,
		Goal:                120000,
		NumSimulations:      5000,
		StartDate:           start,
		Seed:                42,
	}
}

func newTestEngine(workers int) *Engine {
	return NewEngine(Config{Workers: workers, BatchSize: 250}, logger.Nop(), nil)
}

func TestRun_EndToEnd(t *testing.T) {
	res, err := newTestEngine(4).Run(context.Background(), referenceInput())
	require.NoError(t, err)

	assert.True(t, res.HasMonteCarlo)
	assert.Equal(t, 120, res.Months)
	assert.Equal(t, int64(42), res.Seed)
	require.NotNil(t, res.Stats)
	assert.InDelta(t, goldenMean, res.Stats.Mean, goldenMean*0.02)
	assert.Less(t, res.Stats.P5, res.Stats.Mean)
	assert.Less(t, res.Stats.Mean, res.Stats.P95)

	// deterministic path
	require.Len(t, res.Deterministic, 121)
	assert.InDelta(t, compound.ClosedForm(10000, 500, compound.MonthlyRate(10), 120), res.Deterministic[120], 1e-6)
	assert.InDelta(t, 10000+500*120, res.Totals.TotalInvested, 1e-9)

	// series shape and ordering
	require.NotNil(t, res.Series)
	require.Len(t, res.Series.Mean, 121)
	for _, m := range []int{0, 60, 120} {
		s := res.Series.At(m)
		assert.LessOrEqual(t, s.Min, s.P2_5)
		assert.LessOrEqual(t, s.P2_5, s.P5)
		assert.LessOrEqual(t, s.P5, s.P50)
		assert.LessOrEqual(t, s.P50, s.P95)
		assert.LessOrEqual(t, s.P95, s.P97_5)
		assert.LessOrEqual(t, s.P97_5, s.Max)
	}
	assert.InDelta(t, res.Stats.Mean, res.Series.Mean[120], 1e-6)

	// yearly projection reads month y*12
	require.Len(t, res.YearlyProjection, 11)
	assert.Equal(t, 60, res.YearlyProjection[5].Month)
	assert.Equal(t, res.Series.P50[60], res.YearlyProjection[5].Stats.P50)

	assert.Nil(t, res.Risk, "no provider and no override")
	assert.Len(t, res.Implicit, 7)
	assert.Len(t, res.Samples.AnnualRate, 5000)
}

func TestRun_RepresentativeScenariosAreRealizable(t *testing.T) {
	res, err := newTestEngine(2).Run(context.Background(), referenceInput())
	require.NoError(t, err)
	require.Len(t, res.Representative, 6)

	for _, rep := range res.Representative {
		recomputed := compound.ClosedForm(rep.InitialCapital, rep.MonthlyContribution,
			compound.MonthlyRate(rep.AnnualRate), res.Months)
		assert.InDelta(t, rep.FinalBalance, recomputed, 1e-6, rep.Label)
		assert.Equal(t, res.FinalBalances[rep.Index], rep.FinalBalance)
		assert.Equal(t, 500.0, rep.MonthlyContribution)
		assert.GreaterOrEqual(t, rep.AnnualRate, 6.0)
		assert.LessOrEqual(t, rep.AnnualRate, 14.0)
	}
}

func TestRun_ReproducibleAcrossWorkerCounts(t *testing.T) {
	in := referenceInput()
	in.NumSimulations = 1000

	a, err := newTestEngine(1).Run(context.Background(), in)
	require.NoError(t, err)
	b, err := newTestEngine(8).Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, a.FinalBalances, b.FinalBalances)
	assert.Equal(t, a.Series.P50, b.Series.P50)
	assert.Equal(t, a.Representative, b.Representative)

	in.Seed = 7
	c, err := newTestEngine(8).Run(context.Background(), in)
	require.NoError(t, err)
	assert.NotEqual(t, a.FinalBalances, c.FinalBalances)
}

func TestRun_DeterministicOnly(t *testing.T) {
	in := Input{
		InitialCapital:      params.Fixed(10000),
		MonthlyContribution: params.Fixed(1000),
		AnnualRate:          params.Fixed(12),
		Years:               1,
		Goal:                20000,
		NumSimulations:      100,
		StartDate:           start,
	}
	res, err := newTestEngine(2).Run(context.Background(), in)
	require.NoError(t, err)

	assert.False(t, res.HasMonteCarlo)
	assert.Nil(t, res.Series)
	assert.Nil(t, res.Stats)
	assert.Empty(t, res.Representative)
	assert.Equal(t, res.Deterministic[12], res.FinalBalanceMean())
	assert.InDelta(t, compound.Trajectory(10000, 1000, compound.MonthlyRate(12), 12)[12], res.Deterministic[12], 1e-6)
	assert.True(t, res.Analysis.GoalAchieved)
	assert.Len(t, res.YearlyProjection, 2)
}

func TestRun_EventsAndInsolvency(t *testing.T) {
	in := referenceInput()
	in.NumSimulations = 500
	in.Events = events.List{
		events.NewEvent(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC), "house", 0, 60000),
		events.NewEvent(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), "bonus", 2000, 0),
	}

	res, err := newTestEngine(4).Run(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, res.EventsApplied)

	// month 14 relative, applied on step 15; the deterministic path cannot cover 60000 by then
	require.NotNil(t, res.Insolvency)
	assert.Equal(t, 15, res.Insolvency.Month)
	assert.Equal(t, 60000.0, res.Insolvency.WithdrawalAttempted)
	for m := 15; m <= res.Months; m++ {
		assert.Equal(t, 0.0, res.Deterministic[m])
	}
	assert.Equal(t, res.NumSimulations, res.InsolventScenarios)
	assert.Equal(t, 0.0, res.Stats.Max)
	assert.Equal(t, 2000.0, res.YearlyProjection[1].Deposits)
	assert.Equal(t, 60000.0, res.YearlyProjection[2].Withdrawals)

	// totals identity holds with the paid-out amount
	tot := res.Totals
	assert.InDelta(t, tot.FinalBalance, tot.TotalInvested-tot.TotalWithdrawn+tot.TotalInterest, 1e-6)
}

func TestRun_RiskMetricsWithProvider(t *testing.T) {
	provider := risk.RateProviderFunc(func(context.Context) (float64, error) { return 4, nil })
	e := NewEngine(Config{Workers: 2}, logger.Nop(), provider)

	in := referenceInput()
	in.NumSimulations = 1000
	res, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, res.Risk)
	assert.Equal(t, 4.0, res.Risk.RiskFreeRate)
	assert.Greater(t, res.Risk.ProbSuccess, 0.0)
	assert.Equal(t, 0.0, res.Risk.ProbRuin)

	override := 1.0
	in.RiskFreeRate = &override
	res, err = e.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Risk.RiskFreeRate)
}

func TestInput_ValidateCollectsEverything(t *testing.T) {
	in := Input{
		InitialCapital:      params.Range{},
		MonthlyContribution: params.Between(500, 500),
		AnnualRate:          params.Span(6, 20, 14),
		Years:               0,
		Goal:                -1,
		NumSimulations:      10,
		Distribution:        "cauchy",
	}
	err := in.Validate()
	require.Error(t, err)

	var verr *params.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 7)
	assert.True(t, errors.Is(err, params.ErrIncomplete))
	assert.True(t, errors.Is(err, params.ErrDegenerateRange))
	assert.True(t, errors.Is(err, params.ErrOutOfRange))

	_, runErr := newTestEngine(1).Run(context.Background(), in)
	assert.Equal(t, err.Error(), runErr.Error())
}

func TestInput_ValidateRateFloor(t *testing.T) {
	tests := []struct {
		name string
		rate params.Range
	}{
		{name: "fixed", rate: params.Fixed(-150)},
		{name: "exactly -100", rate: params.Fixed(-100)},
		{name: "range min", rate: params.Between(-120, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := referenceInput()
			in.AnnualRate = tt.rate

			err := in.Validate()
			var verr *params.ValidationError
			require.True(t, errors.As(err, &verr))
			require.Len(t, verr.Problems, 1)
			assert.Equal(t, "annual_rate", verr.Problems[0].Field)
		})
	}

	in := referenceInput()
	in.AnnualRate = params.Fixed(-99)
	assert.NoError(t, in.Validate())
}

func TestRun_NegativeDeterministicRate(t *testing.T) {
	in := Input{
		InitialCapital:      params.Fixed(10000),
		MonthlyContribution: params.Fixed(0),
		AnnualRate:          params.Fixed(-5),
		Years:               2,
		NumSimulations:      MinSimulations,
		StartDate:           start,
	}

	res, err := newTestEngine(1).Run(context.Background(), in)
	require.NoError(t, err)

	want := compound.ClosedForm(10000, 0, compound.MonthlyRate(-5), 24)
	assert.InDelta(t, 9025, want, 1e-6)
	assert.InDelta(t, want, res.Deterministic[24], 1e-6)
	assert.InDelta(t, 10000, res.Totals.TotalInvested, 1e-9)
	assert.Less(t, res.Totals.TotalInterest, 0.0)
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(2).Run(ctx, referenceInput())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunWithProgress(t *testing.T) {
	in := referenceInput()
	in.NumSimulations = 1000

	var (
		mu    sync.Mutex
		calls []int
	)
	_, err := newTestEngine(3).RunWithProgress(context.Background(), in, func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1000, total)
		calls = append(calls, done)
	})
	require.NoError(t, err)

	require.Len(t, calls, 4, "1000 scenarios in batches of 250")
	assert.Equal(t, 1000, calls[len(calls)-1])
	for i := 1; i < len(calls); i++ {
		assert.Greater(t, calls[i], calls[i-1])
	}
}

func TestSummarize(t *testing.T) {
	col := make([]float64, 200)
	for i := range col {
		col[i] = float64(200 - i)
	}
	s := summarize(col)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 200.0, s.Max)
	assert.Equal(t, 6.0, s.P2_5)
	assert.Equal(t, 101.0, s.P50)
	assert.Equal(t, 196.0, s.P97_5)
	assert.Equal(t, 100.5, s.Mean)
	assert.Equal(t, 200.0, col[0], "input untouched")
}
