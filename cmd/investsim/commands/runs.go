package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/invest-sim/internal/report"
	"github.com/wonny/invest-sim/internal/store"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "저장된 시뮬레이션 실행 조회",
	Long: `run store 에 저장된 실행을 조회합니다.

Example:
  go run ./cmd/investsim runs list --limit 20
  go run ./cmd/investsim runs show 5f0c...`,
}

var (
	runsListCmd = &cobra.Command{
		Use:   "list",
		Short: "최근 실행 목록",
		RunE:  listRuns,
	}

	runsShowCmd = &cobra.Command{
		Use:   "show [run_id]",
		Short: "저장된 실행 요약 출력",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	runsFilter store.Filter
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsListCmd.Flags().IntVar(&runsFilter.Limit, "limit", 20, "최대 개수")
	runsListCmd.Flags().IntVar(&runsFilter.Offset, "offset", 0, "건너뛸 개수")
	runsListCmd.Flags().StringVar(&runsFilter.InputHash, "hash", "", "입력 해시로 필터")
}

func listRuns(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{withStore: true, quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.runs.List(cmd.Context(), runsFilter)
	if err != nil {
		return err
	}
	printRuns(cmd.OutOrStdout(), runs)
	return nil
}

func printRuns(w io.Writer, runs []store.Summary) {
	if len(runs) == 0 {
		PrintInfo(w, "no stored runs")
		return
	}
	PrintHeader(w, fmt.Sprintf("Stored runs (%d)", len(runs)))
	for _, r := range runs {
		line := fmt.Sprintf("%s  %s  %2dy  mean %s  p5 %s  p95 %s",
			r.CreatedAt.Format("2006-01-02 15:04"), r.ID, r.Years,
			report.Grouped(r.FinalMean), report.Grouped(r.P5), report.Grouped(r.P95))
		if r.Label != "" {
			line += "  " + r.Label
		}
		fmt.Fprintln(w, line)
	}
}

func showRun(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{withStore: true, quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.runs.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	res, err := run.Decode()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	PrintHeader(w, "Run "+run.ID)
	PrintKeyValue(w, "Created", run.CreatedAt.Format("2006-01-02 15:04:05"), 10)
	PrintKeyValue(w, "Label", run.Label, 10)
	PrintKeyValue(w, "Input", run.InputHash, 10)
	PrintSeparator(w)
	fmt.Fprintln(w, report.SummaryTable(res))
	fmt.Fprintln(w, report.YearlyTable(res))
	return nil
}
