package risk

import (
	"fmt"
	"math"

	"github.com/wonny/invest-sim/internal/compound"
)

// =============================================================================
// Implicit rate (bisection)
// =============================================================================

// ImplicitRateOptions bisection 설정
type ImplicitRateOptions struct {
	Low           float64 // annual %, 기본 -30
	High          float64 // annual %, 기본 50 (넓은 구간: 100)
	Tolerance     float64 // 금액 허용 오차, 기본 1000
	MaxIterations int     // 기본 100
}

// DefaultImplicitRateOptions 기본 bisection 설정
func DefaultImplicitRateOptions() ImplicitRateOptions {
	return ImplicitRateOptions{Low: -30, High: 50, Tolerance: 1000, MaxIterations: 100}
}

// WideImplicitRateOptions 상단을 100%로 넓힌 설정
func WideImplicitRateOptions() ImplicitRateOptions {
	o := DefaultImplicitRateOptions()
	o.High = 100
	return o
}

func (o ImplicitRateOptions) withDefaults() ImplicitRateOptions {
	d := DefaultImplicitRateOptions()
	if o.Low == 0 && o.High == 0 {
		o.Low, o.High = d.Low, d.High
	}
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	return o
}

// FindImplicitRate 목표 잔액을 재현하는 연 수익률 (%)
// 이벤트 없는 순수 복리 공식에 대해 bisection. 반복 소진 시 마지막 구간 중앙 반환 (Converged=false)
func FindImplicitRate(target, capital, contribution float64, years int, opts ImplicitRateOptions) (ImplicitRate, error) {
	opts = opts.withDefaults()
	if years <= 0 {
		return ImplicitRate{}, fmt.Errorf("%w: years must be > 0, got %d", ErrInvalidConfig, years)
	}
	if opts.Low >= opts.High || opts.Low <= -100 {
		return ImplicitRate{}, fmt.Errorf("%w: invalid bracket [%.2f, %.2f]", ErrInvalidConfig, opts.Low, opts.High)
	}
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return ImplicitRate{}, fmt.Errorf("%w: target must be finite", ErrInvalidConfig)
	}

	lo, hi := opts.Low, opts.High
	for i := 1; i <= opts.MaxIterations; i++ {
		mid := (lo + hi) / 2
		simulated := compound.FinalBalance(capital, contribution, mid, years)

		if math.Abs(simulated-target) < opts.Tolerance {
			return ImplicitRate{Rate: mid, Converged: true, Iterations: i}, nil
		}
		if simulated < target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return ImplicitRate{Rate: (lo + hi) / 2, Converged: false, Iterations: opts.MaxIterations}, nil
}

// =============================================================================
// Implicit parameters per percentile
// =============================================================================

type implicitTarget struct {
	name, percentile, kind string
	value                  func(PercentileStats) float64
}

var implicitTargets = []implicitTarget{
	{"P5 (pessimistic)", "P5", "worst case", func(s PercentileStats) float64 { return s.P5 }},
	{"P25 (conservative)", "P25", "conservative", func(s PercentileStats) float64 { return s.P25 }},
	{"P50 (median)", "P50", "typical", func(s PercentileStats) float64 { return s.P50 }},
	{"P75 (good)", "P75", "optimistic", func(s PercentileStats) float64 { return s.P75 }},
	{"P95 (optimistic)", "P95", "best case", func(s PercentileStats) float64 { return s.P95 }},
	{"Mean", "MEAN", "expected value", func(s PercentileStats) float64 { return s.Mean }},
	{"Mode", "MODE", "most frequent", func(s PercentileStats) float64 { return s.Mode }},
}

// ExtractImplicitParameters 백분위별 역산 수익률
// capital, contribution 은 결정론 값 고정, 수익률만 역산
func ExtractImplicitParameters(stats PercentileStats, capital, contribution float64, years int) ([]ImplicitParameters, error) {
	out := make([]ImplicitParameters, 0, len(implicitTargets))
	for _, t := range implicitTargets {
		target := t.value(stats)
		rate, err := FindImplicitRate(target, capital, contribution, years, DefaultImplicitRateOptions())
		if err != nil {
			return nil, fmt.Errorf("implicit rate for %s: %w", t.percentile, err)
		}
		out = append(out, ImplicitParameters{
			ScenarioName:        t.name,
			Percentile:          t.percentile,
			ScenarioType:        t.kind,
			InitialCapital:      capital,
			MonthlyContribution: contribution,
			AnnualRate:          rate.Rate,
			Converged:           rate.Converged,
			FinalBalance:        target,
		})
	}
	return out, nil
}
