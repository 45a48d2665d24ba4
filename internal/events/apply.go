package events

import (
	"time"

	"github.com/wonny/invest-sim/internal/compound"
)

// Monthly holds consolidated deposits and withdrawals indexed by simulation step.
// Index t (1..totalMonths) is applied after the compounding step that produces
// balance[t]; index 0 is never used. An event in relative month r lands on step r+1.
type Monthly struct {
	Deposits    []float64 `json:"deposits"`
	Withdrawals []float64 `json:"withdrawals"`
}

// Consolidate sums events into fixed arrays of length totalMonths+1.
// Events with relative month outside [0, totalMonths) are dropped.
func Consolidate(list []Event, start time.Time, totalMonths int) Monthly {
	m := Monthly{
		Deposits:    make([]float64, totalMonths+1),
		Withdrawals: make([]float64, totalMonths+1),
	}
	for _, e := range list {
		e = e.Normalize()
		r := RelativeMonth(e.Date, start)
		if r < 0 || r >= totalMonths {
			continue
		}
		m.Deposits[r+1] += e.Deposit
		m.Withdrawals[r+1] += e.Withdrawal
	}
	return m
}

// Empty reports whether no step carries a cash flow.
func (m Monthly) Empty() bool {
	for t := range m.Deposits {
		if m.Deposits[t] != 0 || m.Withdrawals[t] != 0 {
			return false
		}
	}
	return true
}

// Months returns the number of simulation steps covered.
func (m Monthly) Months() int {
	if len(m.Deposits) == 0 {
		return 0
	}
	return len(m.Deposits) - 1
}

// TotalDeposits sums deposits over all steps.
func (m Monthly) TotalDeposits() float64 {
	var s float64
	for _, d := range m.Deposits {
		s += d
	}
	return s
}

// YearTotals returns deposits and withdrawals applied during simulation year
// (1-based): steps 12*(year-1)+1 .. 12*year.
func (m Monthly) YearTotals(year int) (deposits, withdrawals float64) {
	from := 12*(year-1) + 1
	to := 12 * year
	for t := from; t <= to && t < len(m.Deposits); t++ {
		if t < 1 {
			continue
		}
		deposits += m.Deposits[t]
		withdrawals += m.Withdrawals[t]
	}
	return deposits, withdrawals
}

// =============================================================================
// Insolvency
// =============================================================================

// Insolvency describes the first month a withdrawal could not be covered.
type Insolvency struct {
	Month               int     `json:"month"`
	YearRelative        float64 `json:"year_relative"`
	BalanceBefore       float64 `json:"balance_before"`
	WithdrawalAttempted float64 `json:"withdrawal_attempted"`
}

// Flows are the cash-flow sums of one trajectory after events were applied.
type Flows struct {
	Contributions float64
	Deposits      float64
	Withdrawn     float64
}

// ApplyToTrajectory recomputes row in place from row[0] with events applied:
//
//	row[t] = step(row[t-1]) + deposit[t] - withdrawal[t]
//
// When the post-deposit balance is below the withdrawal, the first such month is
// recorded and the row is zeroed from there on (insolvency is absorbing).
// Returns nil when the row stayed solvent.
func ApplyToTrajectory(row []float64, contribution, monthlyRate float64, monthly Monthly) *Insolvency {
	ins, _ := applyWithFlows(row, contribution, monthlyRate, monthly)
	return ins
}

// ApplyWithFlows is ApplyToTrajectory that also reports the cash-flow sums,
// counting contributions and deposits only up to the insolvency month.
func ApplyWithFlows(row []float64, contribution, monthlyRate float64, monthly Monthly) (*Insolvency, Flows) {
	return applyWithFlows(row, contribution, monthlyRate, monthly)
}

func applyWithFlows(row []float64, contribution, monthlyRate float64, monthly Monthly) (*Insolvency, Flows) {
	var flows Flows
	months := len(row) - 1
	for t := 1; t <= months; t++ {
		balance := compound.Step(row[t-1], contribution, monthlyRate)
		flows.Contributions += contribution

		var dep, wd float64
		if t < len(monthly.Deposits) {
			dep = monthly.Deposits[t]
			wd = monthly.Withdrawals[t]
		}
		balance += dep
		flows.Deposits += dep

		if wd > 0 && balance < wd {
			ins := &Insolvency{
				Month:               t,
				YearRelative:        float64(t) / 12,
				BalanceBefore:       balance,
				WithdrawalAttempted: wd,
			}
			flows.Withdrawn += balance
			for k := t; k <= months; k++ {
				row[k] = 0
			}
			return ins, flows
		}
		flows.Withdrawn += wd
		row[t] = balance - wd
	}
	return nil, flows
}

// Project builds a fresh trajectory from initial with events applied.
func Project(initial, contribution, monthlyRate float64, monthly Monthly) ([]float64, *Insolvency) {
	row := make([]float64, monthly.Months()+1)
	row[0] = initial
	ins := ApplyToTrajectory(row, contribution, monthlyRate, monthly)
	return row, ins
}
