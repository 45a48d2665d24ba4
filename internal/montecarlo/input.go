package montecarlo

import (
	"runtime"
	"time"

	"github.com/wonny/invest-sim/internal/events"
	"github.com/wonny/invest-sim/internal/params"
)

// Simulation count bounds
const (
	MinSimulations = 100
	MaxSimulations = 100000
	MaxYears       = 100

	// MinAnnualRate exclusive floor; at -100% the monthly rate is undefined
	MinAnnualRate = -100.0
)

// Config 엔진 실행 설정
type Config struct {
	Seed      int64 // 0 = 시계 기반 (Input.Seed 우선)
	Workers   int   // 0 = GOMAXPROCS
	BatchSize int   // 취소 확인 단위 (시나리오 수)
}

// DefaultConfig 기본 설정
func DefaultConfig() Config {
	return Config{
		Workers:   runtime.GOMAXPROCS(0),
		BatchSize: 500,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	return c
}

// Input 시뮬레이션 입력
// ⭐ SSOT: 실행 중 불변. Events는 이미 타입이 정해진 목록 제공자
type Input struct {
	InitialCapital      params.Range        `json:"initial_capital"`
	MonthlyContribution params.Range        `json:"monthly_contribution"`
	AnnualRate          params.Range        `json:"annual_rate"` // %
	Years               int                 `json:"years"`
	Goal                float64             `json:"goal"`
	NumSimulations      int                 `json:"num_simulations"`
	StartDate           time.Time           `json:"start_date"`
	Distribution        params.Distribution `json:"distribution,omitempty"`
	RiskFreeRate        *float64            `json:"risk_free_rate,omitempty"` // annual %, overrides provider
	Seed                int64               `json:"seed,omitempty"`

	Events events.Source `json:"-"`
}

// Months total simulated months
func (in Input) Months() int {
	return in.Years * 12
}

// IsProbabilistic reports whether any parameter carries a range
func (in Input) IsProbabilistic() bool {
	return in.InitialCapital.IsProbabilistic() ||
		in.MonthlyContribution.IsProbabilistic() ||
		in.AnnualRate.IsProbabilistic()
}

// Validate collects every violated constraint into a *params.ValidationError
func (in Input) Validate() error {
	var v params.ValidationError

	v.Add("initial_capital", in.InitialCapital.Validate())
	v.Add("monthly_contribution", in.MonthlyContribution.Validate())
	v.Add("annual_rate", in.AnnualRate.Validate())
	for _, bound := range []*float64{in.AnnualRate.Min, in.AnnualRate.Deterministic, in.AnnualRate.Max} {
		if bound != nil && *bound <= MinAnnualRate {
			v.Addf("annual_rate", "must be > %g, got %g", MinAnnualRate, *bound)
			break
		}
	}

	if in.Years <= 0 || in.Years > MaxYears {
		v.Addf("years", "must be within (0, %d], got %d", MaxYears, in.Years)
	}
	if in.Goal < 0 {
		v.Addf("goal", "must be >= 0, got %.2f", in.Goal)
	}
	if in.NumSimulations < MinSimulations || in.NumSimulations > MaxSimulations {
		v.Addf("num_simulations", "must be within [%d, %d], got %d", MinSimulations, MaxSimulations, in.NumSimulations)
	}
	if _, err := params.ParseDistribution(string(in.Distribution)); err != nil {
		v.Add("distribution", err)
	}
	if in.RiskFreeRate != nil && *in.RiskFreeRate <= -100 {
		v.Addf("risk_free_rate", "must be > -100, got %.2f", *in.RiskFreeRate)
	}

	return v.Err()
}
