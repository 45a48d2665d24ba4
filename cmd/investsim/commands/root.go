package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "investsim",
	Short: "복리 투자 시뮬레이터 (결정론 + Monte Carlo)",
	Long: `investsim Unified CLI

월 복리 투자 계획을 결정론적으로 계산하고,
범위로 주어진 파라미터는 Monte Carlo 로 시뮬레이션합니다.

Usage:
  go run ./cmd/investsim [command]

Examples:
  go run ./cmd/investsim run scenarios/retirement.yaml
  go run ./cmd/investsim implicit-rate --target 150000 --capital 10000 --contribution 500 --years 10
  go run ./cmd/investsim returns scenarios/history.toml --out returns.csv
  go run ./cmd/investsim api
  go run ./cmd/investsim scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")
}
