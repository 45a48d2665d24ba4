package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/invest-sim/internal/ratesource"
	"github.com/wonny/invest-sim/pkg/logger"
)

// WarmRateJob refreshes the cached risk-free rate before requests need it
type WarmRateJob struct {
	refresher ratesource.Refresher
	schedule  string
	logger    *logger.Logger
}

// NewWarmRateJob creates a new cache warming job
func NewWarmRateJob(refresher ratesource.Refresher, schedule string, log *logger.Logger) *WarmRateJob {
	return &WarmRateJob{
		refresher: refresher,
		schedule:  schedule,
		logger:    log,
	}
}

// Name returns the job name
func (j *WarmRateJob) Name() string {
	return "warm_risk_free_rate"
}

// Schedule returns the cron schedule (default: every 6 hours)
func (j *WarmRateJob) Schedule() string {
	return j.schedule
}

// Run fetches a fresh quote and stores it in the cache
func (j *WarmRateJob) Run(ctx context.Context) error {
	quote, err := j.refresher.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("warm_risk_free_rate: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"rate":   quote.Rate,
		"source": quote.Source,
	}).Debug("Risk-free rate cache warmed")

	return nil
}
