package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/invest-sim/internal/montecarlo"
	"github.com/wonny/invest-sim/internal/params"
	"github.com/wonny/invest-sim/internal/report"
	"github.com/wonny/invest-sim/internal/scenario"
	"github.com/wonny/invest-sim/internal/store"
	"github.com/wonny/invest-sim/pkg/config"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [scenario-file]",
	Short: "시나리오 파일 시뮬레이션",
	Long: `시나리오 파일(YAML / TOML / JSON)을 읽어 시뮬레이션을 실행합니다.

모든 파라미터가 고정값이면 결정론 계산만 수행하고,
범위(min / max)가 하나라도 있으면 Monte Carlo 를 실행합니다.

출력:
- 요약, 연도별 예측, 대표 시나리오, 역산 수익률 표
- --csv-dir 지정 시 yearly.csv / representative.csv / implicit.csv
- --json 지정 시 전체 결과 JSON (stdout)

Example:
  go run ./cmd/investsim run scenarios/retirement.yaml
  go run ./cmd/investsim run plan.toml --sims 20000 --seed 42 --csv-dir out/
  go run ./cmd/investsim run plan.json --save --label "plan A"`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulation,
}

// runOptions run command flags
type runOptions struct {
	sims   int
	seed   int64
	save   bool
	label  string
	csvDir string
	json   bool
}

var runOpts runOptions

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&runOpts.sims, "sims", 0, "시뮬레이션 횟수 (0 = 파일 / 기본값)")
	runCmd.Flags().Int64Var(&runOpts.seed, "seed", 0, "난수 시드 (0 = 파일 / 시간)")
	runCmd.Flags().BoolVar(&runOpts.save, "save", false, "결과를 run store 에 저장")
	runCmd.Flags().StringVar(&runOpts.label, "label", "", "저장 시 라벨 (기본: 시나리오 이름)")
	runCmd.Flags().StringVar(&runOpts.csvDir, "csv-dir", "", "CSV 출력 디렉터리")
	runCmd.Flags().BoolVar(&runOpts.json, "json", false, "표 대신 결과 JSON 출력")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{withStore: runOpts.save, quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	return executeScenario(ctx, scenarioRun{
		path:     args[0],
		opts:     runOpts,
		defaults: a.cfg.Simulation,
		engine:   a.engine,
		runs:     a.runs,
		stdout:   cmd.OutOrStdout(),
		stderr:   cmd.ErrOrStderr(),
		now:      time.Now(),
	})
}

// scenarioRun everything executeScenario needs; runs may be nil
type scenarioRun struct {
	path     string
	opts     runOptions
	defaults config.SimulationConfig
	engine   *montecarlo.Engine
	runs     store.RunStore
	stdout   io.Writer
	stderr   io.Writer
	now      time.Time
}

// executeScenario load → validate → run → report → (csv, save)
func executeScenario(ctx context.Context, r scenarioRun) error {
	doc, _, err := scenario.Load(r.path)
	if err != nil {
		return err
	}
	hash, err := scenario.Hash(doc)
	if err != nil {
		return fmt.Errorf("hash scenario: %w", err)
	}

	in := doc.Input(r.defaults, r.now)
	if r.opts.sims > 0 {
		in.NumSimulations = r.opts.sims
	}
	if r.opts.seed != 0 {
		in.Seed = r.opts.seed
	}

	if err := in.Validate(); err != nil {
		var verr *params.ValidationError
		if errors.As(err, &verr) {
			PrintError(r.stderr, "invalid scenario "+r.path)
			PrintList(r.stderr, verr.Messages())
		}
		return err
	}
	for _, w := range scenario.Lint(in) {
		PrintWarning(r.stderr, fmt.Sprintf("%s %s", w.Code, w.Message))
	}

	var progress montecarlo.ProgressFunc
	if in.IsProbabilistic() && !r.opts.json {
		last := -1
		progress = func(done, total int) {
			pct := done * 100 / total
			if pct/10 != last/10 {
				last = pct
				fmt.Fprintf(r.stderr, "\r[MonteCarlo] %3d%% (%d/%d)", pct, done, total)
			}
			if done == total {
				fmt.Fprintln(r.stderr)
			}
		}
	}

	res, err := r.engine.RunWithProgress(ctx, in, progress)
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	if r.opts.json {
		enc := json.NewEncoder(r.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else {
		printResult(r.stdout, doc, res)
	}

	if r.opts.csvDir != "" {
		if err := writeCSVs(r.opts.csvDir, res); err != nil {
			return err
		}
		PrintSuccess(r.stderr, "CSV written to "+r.opts.csvDir)
	}

	if r.opts.save {
		if r.runs == nil {
			return errors.New("no run store configured")
		}
		label := r.opts.label
		if label == "" {
			label = doc.Name
		}
		run, err := store.NewRun(res, hash, label)
		if err != nil {
			return err
		}
		if err := r.runs.Save(ctx, run); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		PrintSuccess(r.stderr, "Saved run "+res.RunID)
	}

	return nil
}

func printResult(w io.Writer, doc *scenario.Document, res *montecarlo.Result) {
	title := doc.Name
	if title == "" {
		title = "Simulation"
	}
	PrintHeader(w, title)
	PrintKeyValue(w, "Run ID", res.RunID, 10)
	PrintKeyValue(w, "Horizon", fmt.Sprintf("%d years (%d months)", res.Years, res.Months), 10)
	PrintKeyValue(w, "Duration", res.Duration.Round(time.Millisecond).String(), 10)
	PrintSeparator(w)

	fmt.Fprintln(w, report.SummaryTable(res))
	fmt.Fprintln(w, report.YearlyTable(res))
	if res.HasMonteCarlo {
		fmt.Fprintln(w, report.RepresentativeTable(res))
		if len(res.Implicit) > 0 {
			fmt.Fprintln(w, report.ImplicitTable(res.Implicit))
		}
	}
}

type csvFile struct {
	name  string
	write func(io.Writer) error
}

// writeCSVs yearly.csv, representative.csv and implicit.csv into dir
func writeCSVs(dir string, res *montecarlo.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create csv dir: %w", err)
	}

	files := []csvFile{
		{"yearly.csv", func(w io.Writer) error { return report.WriteYearlyCSV(w, res) }},
	}
	if res.HasMonteCarlo {
		files = append(files,
			csvFile{"representative.csv", func(w io.Writer) error { return report.WriteRepresentativeCSV(w, res) }},
			csvFile{"implicit.csv", func(w io.Writer) error { return report.WriteImplicitCSV(w, res.Implicit) }},
		)
	}

	for _, f := range files {
		if err := writeFile(filepath.Join(dir, f.name), f.write); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
