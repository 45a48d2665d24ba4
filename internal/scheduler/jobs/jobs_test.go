package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/invest-sim/internal/montecarlo"
	"github.com/wonny/invest-sim/internal/ratesource"
	"github.com/wonny/invest-sim/internal/store"
	"github.com/wonny/invest-sim/pkg/logger"
)

func saveRun(t *testing.T, runs store.RunStore, id string, created time.Time) {
	t.Helper()
	run, err := store.NewRun(&montecarlo.Result{RunID: id, CreatedAt: created, Years: 1}, "hash", "")
	require.NoError(t, err)
	require.NoError(t, runs.Save(context.Background(), run))
}

func TestPruneRunsJob(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	runs := store.NewMemory()
	saveRun(t, runs, "old", now.Add(-40*24*time.Hour))
	saveRun(t, runs, "recent", now.Add(-24*time.Hour))

	job := NewPruneRunsJob(runs, 30*24*time.Hour, "0 3 * * *", logger.Nop())
	job.clock = func() time.Time { return now }

	assert.Equal(t, "prune_runs", job.Name())
	assert.Equal(t, "0 3 * * *", job.Schedule())
	require.NoError(t, job.Run(context.Background()))

	list, err := runs.List(context.Background(), store.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "recent", list[0].ID)

	job.maxAge = 0
	assert.Error(t, job.Run(context.Background()))
}

type fakeRefresher struct {
	err error
}

func (f fakeRefresher) Refresh(ctx context.Context) (ratesource.Quote, error) {
	if f.err != nil {
		return ratesource.Quote{}, f.err
	}
	return ratesource.Quote{Rate: 10.5, Source: ratesource.SourceRemote}, nil
}

func TestWarmRateJob(t *testing.T) {
	job := NewWarmRateJob(fakeRefresher{}, "0 */6 * * *", logger.Nop())
	assert.Equal(t, "warm_risk_free_rate", job.Name())
	require.NoError(t, job.Run(context.Background()))

	failing := NewWarmRateJob(fakeRefresher{err: errors.New("down")}, "@hourly", logger.Nop())
	err := failing.Run(context.Background())
	assert.ErrorContains(t, err, "down")
}
