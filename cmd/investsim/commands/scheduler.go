package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/invest-sim/internal/scheduler"
	"github.com/wonny/invest-sim/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/investsim scheduler start
  go run ./cmd/investsim scheduler list
  go run ./cmd/investsim scheduler run prune_runs`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- prune_runs:          PRUNE_SCHEDULE (기본 매일 03:00), RUN_MAX_AGE 보다 오래된 실행 삭제
- warm_risk_free_rate: WARM_RATE_SCHEDULE (기본 6시간마다), 원격 + 캐시 설정 시에만

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== investsim Scheduler ===")

	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(os.Stdout, sched)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	printJobs(cmd.OutOrStdout(), sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]
	out := cmd.OutOrStdout()

	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	fmt.Fprintf(out, "Running job: %s\n", jobName)
	result, err := sched.RunJobSync(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !result.Success {
		PrintError(out, fmt.Sprintf("%s failed: %s", jobName, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess(out, fmt.Sprintf("%s completed in %s", jobName, result.Duration))
	return nil
}

func printJobs(w io.Writer, sched *scheduler.Scheduler) {
	fmt.Fprintln(w, "\nRegistered jobs:")
	stats := sched.GetJobStats()
	for _, name := range sched.GetAllJobs() {
		PrintKeyValue(w, name, stats[name].Schedule, 20)
	}
}

// initScheduler wires the jobs the configuration enables
func initScheduler(cmd *cobra.Command) (*app, *scheduler.Scheduler, error) {
	a, err := newApp(cmd.Context(), appOptions{withStore: true})
	if err != nil {
		return nil, nil, err
	}
	cfg, log := a.cfg, a.log

	sched := scheduler.New(log)

	if cfg.Retention.MaxAge > 0 {
		prune := jobs.NewPruneRunsJob(a.runs, cfg.Retention.MaxAge, cfg.Retention.PruneSchedule, log)
		if err := sched.AddJob(prune); err != nil {
			a.Close()
			return nil, nil, err
		}
	}

	if a.warm != nil {
		warm := jobs.NewWarmRateJob(a.warm, cfg.Retention.WarmRateSchedule, log)
		if err := sched.AddJob(warm); err != nil {
			a.Close()
			return nil, nil, err
		}
	} else {
		log.Info("warm_risk_free_rate disabled: no cached remote source")
	}

	return a, sched, nil
}
