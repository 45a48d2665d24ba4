package risk

import "math"

// =============================================================================
// Risk Metrics
// =============================================================================

// CalculateRiskMetrics 최종 잔액 기반 리스크 지표
// goal: 목표 금액 (0이면 성공확률 100%)
// invested: 총 투입 원금 (ruin 기준)
// years: 투자 기간
// riskFree: 무위험 연 수익률 (%)
func CalculateRiskMetrics(final []float64, goal, invested, years, riskFree float64) RiskMetrics {
	n := len(final)
	m := RiskMetrics{RiskFreeRate: riskFree}
	if n == 0 {
		return m
	}

	var success, ruin int
	for _, v := range final {
		if v >= goal {
			success++
		}
		if v < invested {
			ruin++
		}
	}
	m.ProbSuccess = float64(success) / float64(n) * 100
	m.ProbRuin = float64(ruin) / float64(n) * 100

	mean := Mean(final)
	v := CalculateVaR(final, 0.95, mean)
	m.VaR95 = v.VaR
	m.CVaR95 = v.CVaR
	m.ParametricVaR95 = CalculateParametricVaR(PopStdDev(final), 0.95).VaR

	m.CAGR = cagr(mean, invested, years)

	perScenario := make([]float64, n)
	for i, fb := range final {
		perScenario[i] = cagr(fb, invested, years)
	}
	m.Volatility = PopStdDev(perScenario) * 100

	if m.Volatility > 0 {
		m.SharpeRatio = (m.CAGR*100 - riskFree) / m.Volatility
	}

	gain := mean - invested
	switch {
	case gain > 0:
		m.RiskReturnRatio = m.VaR95 / gain
	case m.VaR95 > 0:
		m.RiskReturnRatio = math.Inf(1)
	}
	return m
}

// cagr 연평균 성장률 (fraction). 잔액이 0 이하이면 -1
func cagr(final, invested, years float64) float64 {
	if invested <= 0 || years <= 0 {
		return 0
	}
	if final <= 0 {
		return -1
	}
	return math.Pow(final/invested, 1/years) - 1
}
