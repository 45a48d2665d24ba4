package compound

import "math"

// Totals summarises money in, money out and interest for one trajectory.
// Invested - Withdrawn + Interest == FinalBalance.
type Totals struct {
	TotalInvested  float64 `json:"total_invested"`  // initial + contributions made + extra deposits
	TotalWithdrawn float64 `json:"total_withdrawn"` // withdrawals actually paid out
	TotalInterest  float64 `json:"total_interest"`
	FinalBalance   float64 `json:"final_balance"`
}

// ComputeTotals derives totals from the cash-flow sums of a trajectory.
func ComputeTotals(initial, contributions, deposits, withdrawn, final float64) Totals {
	invested := initial + contributions + deposits
	return Totals{
		TotalInvested:  invested,
		TotalWithdrawn: withdrawn,
		TotalInterest:  final + withdrawn - invested,
		FinalBalance:   final,
	}
}

// Analysis is the textual summary shown next to a deterministic projection.
type Analysis struct {
	FinalBalance          float64 `json:"final_balance"`
	TotalInvested         float64 `json:"total_invested"`
	TotalInterest         float64 `json:"total_interest"`
	TotalReturnPercentage float64 `json:"total_return_percentage"`
	Goal                  float64 `json:"goal"`
	GoalAchieved          bool    `json:"goal_achieved"`
	GoalPercentage        float64 `json:"goal_percentage"`
	YearsToGoal           float64 `json:"years_to_goal"`
	GoalReachedInHorizon  bool    `json:"goal_reached_in_horizon"`
}

// Analyze derives goal and return figures from a monthly balance series.
// When the goal is not reached inside the horizon, YearsToGoal is a linear
// extrapolation (years * goal / final).
func Analyze(balances []float64, totals Totals, goal float64) Analysis {
	months := len(balances) - 1
	years := float64(months) / 12
	final := totals.FinalBalance

	a := Analysis{
		FinalBalance:   final,
		TotalInvested:  totals.TotalInvested,
		TotalInterest:  totals.TotalInterest,
		Goal:           goal,
		GoalAchieved:   true,
		GoalPercentage: 100,
	}
	if totals.TotalInvested > 0 {
		a.TotalReturnPercentage = totals.TotalInterest / totals.TotalInvested * 100
	}
	if goal <= 0 {
		return a
	}

	a.GoalAchieved = final >= goal
	a.GoalPercentage = final / goal * 100

	for t, b := range balances {
		if b >= goal {
			a.YearsToGoal = float64(t) / 12
			a.GoalReachedInHorizon = true
			return a
		}
	}
	if final > 0 {
		a.YearsToGoal = years * goal / final
	}
	return a
}

// =============================================================================
// Sensitivities (marginal analysis on the annual closed form)
// =============================================================================

// Sensitivities 연 단위 복리 공식의 편미분 지표
type Sensitivities struct {
	Velocity          float64 `json:"velocity"`           // dM/dt
	ContributionPower float64 `json:"contribution_power"` // dM/d(annual contribution)
	CapitalEfficiency float64 `json:"capital_efficiency"` // dM/dC
	RateSensitivity   float64 `json:"rate_sensitivity"`   // dM/di
}

// ComputeSensitivities evaluates the partial derivatives of
// M = C(1+i)^t + A((1+i)^t - 1)/i with A = 12 * monthly contribution.
// Non-positive rates are nudged to a tiny positive value to keep the formulas finite.
func ComputeSensitivities(capital, annualPercent, years, monthlyContribution float64) Sensitivities {
	i := annualPercent / 100
	if i <= 0 {
		i = 1e-6
	}
	annual := monthlyContribution * 12
	acc := math.Pow(1+i, years)
	lnI := math.Log(1 + i)

	termC := capital * years * math.Pow(1+i, years-1)
	numA := years*i*math.Pow(1+i, years-1) - acc + 1

	return Sensitivities{
		Velocity:          lnI * acc * (capital + annual/i),
		ContributionPower: (acc - 1) / i,
		CapitalEfficiency: acc,
		RateSensitivity:   termC + annual*numA/(i*i),
	}
}

// AnnualTotal evaluates M itself; kept next to its derivatives for tests and callers.
func AnnualTotal(capital, annualPercent, years, monthlyContribution float64) float64 {
	i := annualPercent / 100
	if i <= 0 {
		i = 1e-6
	}
	acc := math.Pow(1+i, years)
	return capital*acc + monthlyContribution*12*(acc-1)/i
}
