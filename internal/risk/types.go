package risk

import (
	"context"
	"encoding/json"
	"math"
)

// =============================================================================
// Loss Convention
// =============================================================================

// VaRConvention VaR 부호 규약
// ⭐ SSOT: 손실을 양수 금액으로 표현, 기준점은 최종 잔액 평균
// VaR95 = mean - P5 (음수면 0)
const VaRConvention = "loss_positive_vs_mean"

// =============================================================================
// Percentile Stats
// =============================================================================

// PercentileStats 최종 잔액 분포 요약
// ⭐ 백분위수는 nearest-rank: sorted[floor(p*n)]
type PercentileStats struct {
	P5            float64 `json:"p5"`
	P10           float64 `json:"p10"`
	P25           float64 `json:"p25"`
	P50           float64 `json:"p50"` // 중앙값
	P75           float64 `json:"p75"`
	P90           float64 `json:"p90"`
	P95           float64 `json:"p95"`
	Mean          float64 `json:"mean"`
	Mode          float64 `json:"mode"` // 30-bin 히스토그램 최빈 구간 중앙
	StdDev        float64 `json:"std_dev"`
	Variance      float64 `json:"variance"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	CoefVariation float64 `json:"coef_variation"` // std/mean * 100
	Count         int     `json:"count"`
}

// =============================================================================
// Risk Metrics
// =============================================================================

// RiskMetrics 최종 잔액 기반 리스크 지표
type RiskMetrics struct {
	ProbSuccess     float64 `json:"prob_success"` // % final >= goal
	ProbRuin        float64 `json:"prob_ruin"`    // % final < invested
	VaR95           float64 `json:"var_95"`
	CVaR95          float64 `json:"cvar_95"`
	ParametricVaR95 float64 `json:"parametric_var_95"` // 정규분포 근사 (비교용)
	CAGR            float64 `json:"cagr"`              // 평균 잔액 기준, fraction
	Volatility      float64 `json:"volatility"`        // 시나리오별 CAGR 표준편차, %
	SharpeRatio     float64 `json:"sharpe_ratio"`
	RiskReturnRatio float64 `json:"risk_return_ratio"` // +Inf when gain <= 0 and VaR > 0
	RiskFreeRate    float64 `json:"risk_free_rate"`    // annual %, as used
	RiskFreeSource  string  `json:"risk_free_source,omitempty"`
}

// MarshalJSON encodes infinite ratios as null since JSON has no Inf.
func (m RiskMetrics) MarshalJSON() ([]byte, error) {
	type alias RiskMetrics
	out := struct {
		alias
		RiskReturnRatio *float64 `json:"risk_return_ratio"`
	}{alias: alias(m)}
	if !math.IsInf(m.RiskReturnRatio, 0) && !math.IsNaN(m.RiskReturnRatio) {
		v := m.RiskReturnRatio
		out.RiskReturnRatio = &v
	}
	return json.Marshal(out)
}

// =============================================================================
// Implicit parameters
// =============================================================================

// ImplicitRate bisection 결과
// ⭐ Converged=false 이면 근사값 (최종 구간 중앙)
type ImplicitRate struct {
	Rate       float64 `json:"rate"` // annual %
	Converged  bool    `json:"converged"`
	Iterations int     `json:"iterations"`
}

// ImplicitParameters 백분위 시나리오의 역산 수익률
type ImplicitParameters struct {
	ScenarioName        string  `json:"scenario_name"`
	Percentile          string  `json:"percentile"`
	ScenarioType        string  `json:"scenario_type"`
	InitialCapital      float64 `json:"initial_capital"`
	MonthlyContribution float64 `json:"monthly_contribution"`
	AnnualRate          float64 `json:"annual_rate"`
	Converged           bool    `json:"converged"`
	FinalBalance        float64 `json:"final_balance"`
}

// =============================================================================
// Historical returns
// =============================================================================

// ReturnMethod 연 수익률 생성 방식
type ReturnMethod string

const (
	MethodBootstrap ReturnMethod = "bootstrap" // 과거 수익률 복원추출
	MethodNormal    ReturnMethod = "normal"    // 정규분포 가정
	MethodTStudent  ReturnMethod = "t_student" // t-분포 (fat tail)
)

// HistoricalReturn 연도별 과거 수익률 (0.1263 = 12.63%)
type HistoricalReturn struct {
	Year   int     `json:"year" yaml:"year" toml:"year"`
	Return float64 `json:"return" yaml:"return" toml:"return"`
	Notes  string  `json:"notes,omitempty" yaml:"notes,omitempty" toml:"notes,omitempty"`
}

// ReturnConfig 수익률 생성 설정
type ReturnConfig struct {
	Method      ReturnMethod `json:"method"`
	Years       int          `json:"years"`
	Simulations int          `json:"simulations"`
	Mean        float64      `json:"mean"`        // normal / t_student
	StdDev      float64      `json:"std_dev"`     // normal / t_student
	DF          float64      `json:"df"`          // t_student 자유도 (기본: 5)
	Seed        int64        `json:"seed"`        // 재현성용 시드 (0=시간)
	Historical  []float64    `json:"historical"`  // bootstrap 입력
}

// DefaultReturnConfig 기본 설정
func DefaultReturnConfig() ReturnConfig {
	return ReturnConfig{
		Method:      MethodBootstrap,
		Simulations: 9000,
		DF:          5,
	}
}

// =============================================================================
// Rate provider
// =============================================================================

// RateProvider supplies the annual risk-free rate in percent.
// Implementations own their caching; the engine never stores the value.
type RateProvider interface {
	RiskFreeRate(ctx context.Context) (float64, error)
}

// SourcedRateProvider is a RateProvider that also names where the rate came from
// ("manual", "remote", "fallback"). The engine records that name when available.
type SourcedRateProvider interface {
	RateProvider
	RiskFreeQuote(ctx context.Context) (rate float64, source string, err error)
}

// RateProviderFunc adapts a function to RateProvider.
type RateProviderFunc func(ctx context.Context) (float64, error)

// RiskFreeRate implements RateProvider.
func (f RateProviderFunc) RiskFreeRate(ctx context.Context) (float64, error) {
	return f(ctx)
}
