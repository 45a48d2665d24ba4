package montecarlo

import (
	"time"

	"github.com/wonny/invest-sim/internal/compound"
	"github.com/wonny/invest-sim/internal/events"
	"github.com/wonny/invest-sim/internal/params"
	"github.com/wonny/invest-sim/internal/risk"
)

// Result 시뮬레이션 결과
// ⭐ SSOT: 동작 없는 직렬화 가능한 값. 재현성을 위해 실제 사용한 Seed 포함
type Result struct {
	RunID          string              `json:"run_id"`
	CreatedAt      time.Time           `json:"created_at"`
	Duration       time.Duration       `json:"duration"`
	Seed           int64               `json:"seed"`
	Years          int                 `json:"years"`
	Months         int                 `json:"months"`
	Goal           float64             `json:"goal"`
	HasMonteCarlo  bool                `json:"has_monte_carlo"`
	NumSimulations int                 `json:"num_simulations"`
	Distribution   params.Distribution `json:"distribution"`

	// Deterministic path (always present)
	Deterministic []float64              `json:"deterministic"`
	Totals        compound.Totals        `json:"totals"`
	Analysis      compound.Analysis      `json:"analysis"`
	Sensitivities compound.Sensitivities `json:"sensitivities"`
	Insolvency    *events.Insolvency     `json:"insolvency,omitempty"`
	EventsApplied bool                   `json:"events_applied"`

	// Monte Carlo (nil / empty when every parameter is fixed)
	Series             *Series                   `json:"series,omitempty"`
	Samples            *Samples                  `json:"samples,omitempty"`
	FinalBalances      []float64                 `json:"final_balances,omitempty"`
	Stats              *risk.PercentileStats     `json:"stats,omitempty"`
	Risk               *risk.RiskMetrics         `json:"risk,omitempty"`
	Representative     []RepresentativeScenario  `json:"representative,omitempty"`
	Implicit           []risk.ImplicitParameters `json:"implicit,omitempty"`
	InsolventScenarios int                       `json:"insolvent_scenarios"`

	YearlyProjection []YearRow `json:"yearly_projection"`
}

// FinalBalanceMean mean of the final balances, or the deterministic final balance
func (r *Result) FinalBalanceMean() float64 {
	if r.Stats != nil {
		return r.Stats.Mean
	}
	return r.Totals.FinalBalance
}

// Series 월별 집계 (index = month, 0..Months)
type Series struct {
	Mean  []float64 `json:"mean"`
	Min   []float64 `json:"min"`
	Max   []float64 `json:"max"`
	P2_5  []float64 `json:"p2_5"`
	P5    []float64 `json:"p5"`
	P10   []float64 `json:"p10"`
	P25   []float64 `json:"p25"`
	P50   []float64 `json:"p50"`
	P75   []float64 `json:"p75"`
	P90   []float64 `json:"p90"`
	P95   []float64 `json:"p95"`
	P97_5 []float64 `json:"p97_5"`
}

// MonthStats one month of Series
type MonthStats struct {
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	P2_5  float64 `json:"p2_5"`
	P5    float64 `json:"p5"`
	P10   float64 `json:"p10"`
	P25   float64 `json:"p25"`
	P50   float64 `json:"p50"`
	P75   float64 `json:"p75"`
	P90   float64 `json:"p90"`
	P95   float64 `json:"p95"`
	P97_5 float64 `json:"p97_5"`
}

func newSeries(months int) *Series {
	mk := func() []float64 { return make([]float64, months+1) }
	return &Series{
		Mean: mk(), Min: mk(), Max: mk(),
		P2_5: mk(), P5: mk(), P10: mk(), P25: mk(), P50: mk(),
		P75: mk(), P90: mk(), P95: mk(), P97_5: mk(),
	}
}

// At returns the aggregate of month t
func (s *Series) At(t int) MonthStats {
	return MonthStats{
		Mean: s.Mean[t], Min: s.Min[t], Max: s.Max[t],
		P2_5: s.P2_5[t], P5: s.P5[t], P10: s.P10[t], P25: s.P25[t], P50: s.P50[t],
		P75: s.P75[t], P90: s.P90[t], P95: s.P95[t], P97_5: s.P97_5[t],
	}
}

func (s *Series) set(t int, m MonthStats) {
	s.Mean[t], s.Min[t], s.Max[t] = m.Mean, m.Min, m.Max
	s.P2_5[t], s.P5[t], s.P10[t], s.P25[t], s.P50[t] = m.P2_5, m.P5, m.P10, m.P25, m.P50
	s.P75[t], s.P90[t], s.P95[t], s.P97_5[t] = m.P75, m.P90, m.P95, m.P97_5
}

// Samples 시나리오별 실제 샘플 (clamp 후)
type Samples struct {
	InitialCapital      []float64 `json:"initial_capital"`
	MonthlyContribution []float64 `json:"monthly_contribution"`
	AnnualRate          []float64 `json:"annual_rate"`
}

// RepresentativeScenario 목표 값에 가장 가까운 실제 시나리오
// ⭐ 역산값이 아니라 실제 샘플 (재현 가능)
type RepresentativeScenario struct {
	Label               string  `json:"label"`
	Target              float64 `json:"target"`
	Index               int     `json:"index"`
	InitialCapital      float64 `json:"initial_capital"`
	MonthlyContribution float64 `json:"monthly_contribution"`
	AnnualRate          float64 `json:"annual_rate"`
	FinalBalance        float64 `json:"final_balance"`
}

// YearRow 연도별 projection (month = year*12)
type YearRow struct {
	Year          int         `json:"year"`
	Month         int         `json:"month"`
	Deterministic float64     `json:"deterministic"`
	Stats         *MonthStats `json:"stats,omitempty"`
	Deposits      float64     `json:"deposits"`
	Withdrawals   float64     `json:"withdrawals"`
}
