package montecarlo

import (
	"sort"

	"github.com/wonny/invest-sim/internal/risk"
)

// summarize computes the month aggregate of one column. The column is not modified.
func summarize(col []float64) MonthStats {
	if len(col) == 0 {
		return MonthStats{}
	}
	sorted := make([]float64, len(col))
	copy(sorted, col)
	sort.Float64s(sorted)

	return MonthStats{
		Mean:  risk.Mean(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		P2_5:  risk.NearestRank(sorted, 0.025),
		P5:    risk.NearestRank(sorted, 0.05),
		P10:   risk.NearestRank(sorted, 0.10),
		P25:   risk.NearestRank(sorted, 0.25),
		P50:   risk.NearestRank(sorted, 0.50),
		P75:   risk.NearestRank(sorted, 0.75),
		P90:   risk.NearestRank(sorted, 0.90),
		P95:   risk.NearestRank(sorted, 0.95),
		P97_5: risk.NearestRank(sorted, 0.975),
	}
}
