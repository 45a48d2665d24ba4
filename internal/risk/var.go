package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// =============================================================================
// VaR (Value at Risk) on wealth levels
// =============================================================================

// VaRResult VaR 계산 결과 (손실 양수, 금액 단위)
type VaRResult struct {
	Confidence float64 `json:"confidence"`
	Threshold  float64 `json:"threshold"` // (1-confidence) 백분위 잔액
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
}

// CalculateVaR Historical VaR on final balances relative to reference.
// reference: 기준 잔액 (평균)
// 반환: VaR = reference - P(1-c), CVaR = reference - mean(values <= P(1-c)), 둘 다 >= 0
func CalculateVaR(values []float64, confidence, reference float64) VaRResult {
	if len(values) == 0 {
		return VaRResult{Confidence: confidence}
	}

	sorted := sortedCopy(values)
	threshold := NearestRank(sorted, 1-confidence)

	// tail: threshold 이하 전부 (동일 값 포함)
	tailEnd := sort.Search(len(sorted), func(i int) bool { return sorted[i] > threshold })

	return VaRResult{
		Confidence: confidence,
		Threshold:  threshold,
		VaR:        math.Max(0, reference-threshold),
		CVaR:       CalculateCVaR(sorted, tailEnd-1, reference),
	}
}

// CalculateCVaR Conditional VaR (Expected Shortfall)
// sorted: 오름차순 정렬
// varIdx: tail 마지막 인덱스 (포함)
func CalculateCVaR(sorted []float64, varIdx int, reference float64) float64 {
	if len(sorted) == 0 || varIdx < 0 {
		return 0
	}
	if varIdx >= len(sorted) {
		varIdx = len(sorted) - 1
	}
	tailMean := Mean(sorted[:varIdx+1])
	return math.Max(0, reference-tailMean)
}

// =============================================================================
// Parametric VaR (정규분포 가정)
// =============================================================================

// CalculateParametricVaR 정규분포 가정 VaR
// VaR = z * stdDev, CVaR = VaR + stdDev * φ(z) / (1-confidence)
// confidence 는 (0, 1) 범위. 그 외에는 0
func CalculateParametricVaR(stdDev, confidence float64) VaRResult {
	if confidence <= 0 || confidence >= 1 {
		return VaRResult{Confidence: confidence}
	}
	z := distuv.UnitNormal.Quantile(confidence)

	varValue := math.Max(0, z*stdDev)
	cvar := varValue + stdDev*distuv.UnitNormal.Prob(z)/(1-confidence)

	return VaRResult{
		Confidence: confidence,
		VaR:        varValue,
		CVaR:       cvar,
	}
}

// =============================================================================
// 통계 유틸리티
// =============================================================================

// Mean 평균 계산
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// PopStdDev 모표준편차 (분모 n)
func PopStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	_, variance := stat.PopMeanVariance(values, nil)
	return math.Sqrt(variance)
}

// NearestRank 백분위수 (nearest-rank)
// sorted: 오름차순 정렬, p: 0~1
// 반환: sorted[min(floor(p*n), n-1)]
func NearestRank(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Floor(p * float64(n)))
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}
