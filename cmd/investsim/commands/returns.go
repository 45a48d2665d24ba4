package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/invest-sim/internal/report"
	"github.com/wonny/invest-sim/internal/risk"
	"github.com/wonny/invest-sim/internal/scenario"
)

// returnsCmd represents the returns command
var returnsCmd = &cobra.Command{
	Use:   "returns [scenario-file]",
	Short: "연 수익률 시나리오 생성",
	Long: `시나리오 파일의 returns 섹션으로 연 수익률 행렬을 생성합니다.

방식:
- bootstrap: historical 목록에서 복원추출 (최소 2개)
- normal:    N(mean, std_dev)
- t_student: 자유도 df 의 t-분포 (fat tail)

Example:
  go run ./cmd/investsim returns scenarios/history.toml
  go run ./cmd/investsim returns scenarios/history.toml --out returns.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runReturns,
}

var returnsOut string

func init() {
	rootCmd.AddCommand(returnsCmd)

	returnsCmd.Flags().StringVar(&returnsOut, "out", "", "행렬 CSV 파일 (기본: 요약만 출력)")
}

func runReturns(cmd *cobra.Command, args []string) error {
	doc, _, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	return generateReturns(cmd.OutOrStdout(), doc, returnsOut)
}

func generateReturns(w io.Writer, doc *scenario.Document, out string) error {
	cfg := doc.ReturnConfig()

	matrix, err := risk.NewEngine(nil).Returns(cfg)
	if err != nil {
		return err
	}
	growth := risk.CalculatePercentileStats(risk.CumulativeGrowth(matrix))

	PrintHeader(w, "Generated returns")
	PrintKeyValue(w, "Method", string(cfg.Method), 12)
	PrintKeyValue(w, "Scenarios", fmt.Sprintf("%d x %d years", cfg.Simulations, cfg.Years), 12)
	PrintSeparator(w)
	// cumulative growth over the horizon (1.5 → +50%)
	PrintKeyValue(w, "Growth P5", report.Percent((growth.P5-1)*100), 12)
	PrintKeyValue(w, "Growth P50", report.Percent((growth.P50-1)*100), 12)
	PrintKeyValue(w, "Growth P95", report.Percent((growth.P95-1)*100), 12)
	PrintKeyValue(w, "Growth mean", report.Percent((growth.Mean-1)*100), 12)

	if out == "" {
		return nil
	}
	if err := writeFile(out, func(f io.Writer) error { return report.WriteReturnsCSV(f, matrix) }); err != nil {
		return err
	}
	PrintSuccess(w, "Matrix written to "+out)
	return nil
}
