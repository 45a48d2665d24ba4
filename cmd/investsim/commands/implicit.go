package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/invest-sim/internal/report"
	"github.com/wonny/invest-sim/internal/risk"
)

// implicitCmd represents the implicit-rate command
var implicitCmd = &cobra.Command{
	Use:   "implicit-rate",
	Short: "목표 잔액을 만드는 연 수익률 역산",
	Long: `초기 자본과 월 납입액이 주어졌을 때 목표 잔액에 도달하는
연 수익률(%)을 bisection 으로 역산합니다.

기본 탐색 구간은 [-30%, 50%], --wide 지정 시 [-30%, 100%].

Example:
  go run ./cmd/investsim implicit-rate --target 150000 --capital 10000 --contribution 500 --years 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printImplicitRate(cmd.OutOrStdout(), implicitOpts)
	},
}

type implicitOptions struct {
	target       float64
	capital      float64
	contribution float64
	years        int
	wide         bool
}

var implicitOpts implicitOptions

func init() {
	rootCmd.AddCommand(implicitCmd)

	implicitCmd.Flags().Float64Var(&implicitOpts.target, "target", 0, "목표 최종 잔액")
	implicitCmd.Flags().Float64Var(&implicitOpts.capital, "capital", 0, "초기 자본")
	implicitCmd.Flags().Float64Var(&implicitOpts.contribution, "contribution", 0, "월 납입액")
	implicitCmd.Flags().IntVar(&implicitOpts.years, "years", 0, "기간 (년)")
	implicitCmd.Flags().BoolVar(&implicitOpts.wide, "wide", false, "상단을 100% 로 넓힘")
	_ = implicitCmd.MarkFlagRequired("target")
	_ = implicitCmd.MarkFlagRequired("years")
}

func printImplicitRate(w io.Writer, o implicitOptions) error {
	opts := risk.DefaultImplicitRateOptions()
	if o.wide {
		opts = risk.WideImplicitRateOptions()
	}

	rate, err := risk.FindImplicitRate(o.target, o.capital, o.contribution, o.years, opts)
	if err != nil {
		return err
	}

	PrintHeader(w, "Implicit rate")
	PrintKeyValue(w, "Target", report.Grouped(o.target), 12)
	PrintKeyValue(w, "Capital", report.Grouped(o.capital), 12)
	PrintKeyValue(w, "Contribution", report.Grouped(o.contribution), 12)
	PrintKeyValue(w, "Years", fmt.Sprintf("%d", o.years), 12)
	PrintSeparator(w)
	PrintKeyValue(w, "Annual rate", report.Percent(rate.Rate), 12)
	PrintKeyValue(w, "Iterations", fmt.Sprintf("%d", rate.Iterations), 12)
	if rate.Converged {
		PrintSuccess(w, "converged")
	} else {
		PrintWarning(w, "did not converge: midpoint of the last bracket")
	}
	return nil
}
