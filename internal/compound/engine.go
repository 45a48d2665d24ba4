package compound

import "math"

// rateEpsilon guards the annuity formula against division by a near-zero rate.
const rateEpsilon = 1e-12

// MonthlyRate converts an annual percentage rate to the equivalent monthly effective rate.
//
//	m = (1 + r/100)^(1/12) - 1
func MonthlyRate(annualPercent float64) float64 {
	return math.Pow(1+annualPercent/100, 1.0/12) - 1
}

// Step applies one month of the recurrence: balance*(1+m) + contribution.
func Step(balance, contribution, monthlyRate float64) float64 {
	return balance*(1+monthlyRate) + contribution
}

// Trajectory runs the month-by-month scan and returns months+1 balances,
// balance[0] being the initial amount.
func Trajectory(initial, contribution, monthlyRate float64, months int) []float64 {
	balances := make([]float64, months+1)
	balances[0] = initial
	for t := 1; t <= months; t++ {
		balances[t] = Step(balances[t-1], contribution, monthlyRate)
	}
	return balances
}

// ClosedForm evaluates the future value of capital plus an ordinary annuity at month t:
//
//	C(1+m)^t + a((1+m)^t - 1)/m
//
// falling back to C + a·t when m is numerically zero.
func ClosedForm(initial, contribution, monthlyRate float64, t int) float64 {
	if math.Abs(monthlyRate) < rateEpsilon {
		return initial + contribution*float64(t)
	}
	growth := math.Pow(1+monthlyRate, float64(t))
	return initial*growth + contribution*(growth-1)/monthlyRate
}

// ClosedFormTrajectory is the event-free fast path equivalent of Trajectory.
func ClosedFormTrajectory(initial, contribution, monthlyRate float64, months int) []float64 {
	balances := make([]float64, months+1)
	for t := range balances {
		balances[t] = ClosedForm(initial, contribution, monthlyRate, t)
	}
	return balances
}

// FinalBalance returns the balance after years of pure compounding (no events).
// Used by the implicit-rate solver, which inverts this function.
func FinalBalance(initial, contribution, annualPercent float64, years int) float64 {
	return ClosedForm(initial, contribution, MonthlyRate(annualPercent), years*12)
}
