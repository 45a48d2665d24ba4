package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/wonny/invest-sim/internal/montecarlo"
	"github.com/wonny/invest-sim/internal/risk"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
)

func render(title string, headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			}
			return numberStyle
		})
	return titleStyle.Render(title) + "\n" + t.String() + "\n"
}

// =============================================================================
// Yearly projection
// =============================================================================

var yearlyHeaders = []string{"year", "month", "deterministic", "mean", "p5", "p25", "p50", "p75", "p95", "deposits", "withdrawals"}

func yearlyRecord(r montecarlo.YearRow, format func(float64) string) []string {
	rec := []string{strconv.Itoa(r.Year), strconv.Itoa(r.Month), format(r.Deterministic)}
	if r.Stats != nil {
		s := r.Stats
		rec = append(rec, format(s.Mean), format(s.P5), format(s.P25), format(s.P50), format(s.P75), format(s.P95))
	} else {
		rec = append(rec, "", "", "", "", "", "")
	}
	return append(rec, format(r.Deposits), format(r.Withdrawals))
}

// YearlyTable terminal table of the yearly projection
func YearlyTable(res *montecarlo.Result) string {
	rows := make([][]string, 0, len(res.YearlyProjection))
	for _, r := range res.YearlyProjection {
		rows = append(rows, yearlyRecord(r, Grouped))
	}
	return render("Yearly projection", yearlyHeaders, rows)
}

// WriteYearlyCSV writes the yearly projection, amounts rounded to cents
func WriteYearlyCSV(w io.Writer, res *montecarlo.Result) error {
	records := [][]string{yearlyHeaders}
	for _, r := range res.YearlyProjection {
		records = append(records, yearlyRecord(r, Money))
	}
	return writeCSV(w, records)
}

// =============================================================================
// Representative scenarios
// =============================================================================

var representativeHeaders = []string{"label", "target", "scenario", "initial_capital", "monthly_contribution", "annual_rate", "final_balance"}

func representativeRecord(r montecarlo.RepresentativeScenario, format func(float64) string) []string {
	return []string{
		r.Label, format(r.Target), strconv.Itoa(r.Index),
		format(r.InitialCapital), format(r.MonthlyContribution), Percent(r.AnnualRate), format(r.FinalBalance),
	}
}

// RepresentativeTable terminal table of the representative scenarios
func RepresentativeTable(res *montecarlo.Result) string {
	rows := make([][]string, 0, len(res.Representative))
	for _, r := range res.Representative {
		rows = append(rows, representativeRecord(r, Grouped))
	}
	return render("Representative scenarios", representativeHeaders, rows)
}

// WriteRepresentativeCSV writes one row per representative scenario
func WriteRepresentativeCSV(w io.Writer, res *montecarlo.Result) error {
	records := [][]string{representativeHeaders}
	for _, r := range res.Representative {
		records = append(records, representativeRecord(r, Money))
	}
	return writeCSV(w, records)
}

// =============================================================================
// Implicit parameters
// =============================================================================

var implicitHeaders = []string{"scenario", "percentile", "type", "initial_capital", "monthly_contribution", "annual_rate", "converged", "final_balance"}

func implicitRecord(p risk.ImplicitParameters, format func(float64) string) []string {
	return []string{
		p.ScenarioName, p.Percentile, p.ScenarioType,
		format(p.InitialCapital), format(p.MonthlyContribution), Percent(p.AnnualRate),
		strconv.FormatBool(p.Converged), format(p.FinalBalance),
	}
}

// ImplicitTable terminal table of the implied rates per percentile
func ImplicitTable(params []risk.ImplicitParameters) string {
	rows := make([][]string, 0, len(params))
	for _, p := range params {
		rows = append(rows, implicitRecord(p, Grouped))
	}
	return render("Implicit parameters", implicitHeaders, rows)
}

// WriteImplicitCSV writes one row per implied scenario
func WriteImplicitCSV(w io.Writer, params []risk.ImplicitParameters) error {
	records := [][]string{implicitHeaders}
	for _, p := range params {
		records = append(records, implicitRecord(p, Money))
	}
	return writeCSV(w, records)
}

// =============================================================================
// Summary
// =============================================================================

// SummaryTable headline figures of a run
func SummaryTable(res *montecarlo.Result) string {
	rows := [][]string{
		{"final balance (deterministic)", Grouped(res.Totals.FinalBalance)},
		{"total invested", Grouped(res.Totals.TotalInvested)},
		{"total withdrawn", Grouped(res.Totals.TotalWithdrawn)},
		{"total interest", Grouped(res.Totals.TotalInterest)},
		{"goal", Grouped(res.Goal)},
		{"goal achieved", strconv.FormatBool(res.Analysis.GoalAchieved)},
		{"years to goal", Ratio(res.Analysis.YearsToGoal)},
	}
	if res.Insolvency != nil {
		rows = append(rows, []string{"insolvent at month", strconv.Itoa(res.Insolvency.Month)})
	}
	if s := res.Stats; s != nil {
		rows = append(rows,
			[]string{"simulations", strconv.Itoa(res.NumSimulations)},
			[]string{"seed", strconv.FormatInt(res.Seed, 10)},
			[]string{"final mean", Grouped(s.Mean)},
			[]string{"final p5 / p50 / p95", fmt.Sprintf("%s / %s / %s", Grouped(s.P5), Grouped(s.P50), Grouped(s.P95))},
			[]string{"insolvent scenarios", strconv.Itoa(res.InsolventScenarios)},
		)
	}
	if m := res.Risk; m != nil {
		rows = append(rows,
			[]string{"probability of success", Percent(m.ProbSuccess)},
			[]string{"probability of ruin", Percent(m.ProbRuin)},
			[]string{"VaR 95 / CVaR 95", fmt.Sprintf("%s / %s", Grouped(m.VaR95), Grouped(m.CVaR95))},
			[]string{"CAGR", Percent(m.CAGR * 100)},
			[]string{"volatility", Percent(m.Volatility)},
			[]string{"sharpe", Ratio(m.SharpeRatio)},
			[]string{"risk / return", Ratio(m.RiskReturnRatio)},
			[]string{"risk-free rate", fmt.Sprintf("%s (%s)", Percent(m.RiskFreeRate), m.RiskFreeSource)},
		)
	}
	return render("Summary", []string{"metric", "value"}, rows)
}

// =============================================================================
// Generated returns
// =============================================================================

// WriteReturnsCSV writes a returns matrix, one scenario per row, as percentages
func WriteReturnsCSV(w io.Writer, matrix [][]float64) error {
	if len(matrix) == 0 {
		return writeCSV(w, [][]string{{"scenario"}})
	}
	header := []string{"scenario"}
	for y := range matrix[0] {
		header = append(header, fmt.Sprintf("year_%d", y+1))
	}
	records := [][]string{header}
	for i, row := range matrix {
		rec := []string{strconv.Itoa(i)}
		for _, r := range row {
			rec = append(rec, Money(r*100))
		}
		records = append(records, rec)
	}
	return writeCSV(w, records)
}

func writeCSV(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
