package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/invest-sim/internal/store"
	"github.com/wonny/invest-sim/pkg/logger"
)

// Pruner deletes runs created before cutoff
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// PruneRunsJob removes stored simulation runs older than maxAge
type PruneRunsJob struct {
	runs     Pruner
	maxAge   time.Duration
	schedule string
	logger   *logger.Logger
	clock    func() time.Time
}

var _ Pruner = (store.RunStore)(nil)

// NewPruneRunsJob creates a new prune job
func NewPruneRunsJob(runs Pruner, maxAge time.Duration, schedule string, log *logger.Logger) *PruneRunsJob {
	return &PruneRunsJob{
		runs:     runs,
		maxAge:   maxAge,
		schedule: schedule,
		logger:   log,
		clock:    time.Now,
	}
}

// Name returns the job name
func (j *PruneRunsJob) Name() string {
	return "prune_runs"
}

// Schedule returns the cron schedule (default: daily at 03:00)
func (j *PruneRunsJob) Schedule() string {
	return j.schedule
}

// Run executes the prune
func (j *PruneRunsJob) Run(ctx context.Context) error {
	if j.maxAge <= 0 {
		return fmt.Errorf("prune_runs: max age must be > 0, got %s", j.maxAge)
	}
	cutoff := j.clock().Add(-j.maxAge)

	removed, err := j.runs.Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune_runs: %w", err)
	}

	if removed > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed": removed,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Old simulation runs pruned")
	}

	return nil
}
