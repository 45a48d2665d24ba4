package risk

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// HistogramBins 최빈값 추정에 쓰는 구간 수
const HistogramBins = 30

// CalculatePercentileStats 최종 잔액 분포 통계
// 빈 입력이면 zero value
func CalculatePercentileStats(final []float64) PercentileStats {
	n := len(final)
	if n == 0 {
		return PercentileStats{}
	}

	sorted := sortedCopy(final)
	mean, variance := stat.PopMeanVariance(sorted, nil)
	std := math.Sqrt(variance)

	s := PercentileStats{
		P5:       NearestRank(sorted, 0.05),
		P10:      NearestRank(sorted, 0.10),
		P25:      NearestRank(sorted, 0.25),
		P50:      NearestRank(sorted, 0.50),
		P75:      NearestRank(sorted, 0.75),
		P90:      NearestRank(sorted, 0.90),
		P95:      NearestRank(sorted, 0.95),
		Mean:     mean,
		StdDev:   std,
		Variance: variance,
		Min:      sorted[0],
		Max:      sorted[n-1],
		Count:    n,
	}
	if mean > 0 {
		s.CoefVariation = std / mean * 100
	}
	s.Mode = modalClass(sorted, s.P50)
	return s
}

// modalClass returns the midpoint of the fullest histogram bin.
// Falls back to median when all values are equal.
func modalClass(sorted []float64, median float64) float64 {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if !(hi > lo) || math.IsInf(hi-lo, 0) {
		return median
	}

	dividers := make([]float64, HistogramBins+1)
	floats.Span(dividers, lo, hi)
	// upper edge inclusive: stat.Histogram treats the last divider as exclusive
	dividers[HistogramBins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, sorted, nil)
	best := floats.MaxIdx(counts)
	return (dividers[best] + dividers[best+1]) / 2
}
