package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/wonny/invest-sim/internal/montecarlo"
	"github.com/wonny/invest-sim/internal/ratesource"
	"github.com/wonny/invest-sim/internal/store"
	"github.com/wonny/invest-sim/pkg/config"
	"github.com/wonny/invest-sim/pkg/httputil"
	"github.com/wonny/invest-sim/pkg/logger"
	"github.com/wonny/invest-sim/pkg/redis"
)

// app shared wiring for every command
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	redis   *redis.Client
	rates   *ratesource.Chain
	warm    ratesource.Refresher // nil when no cached remote source
	engine  *montecarlo.Engine
	runs    store.RunStore // nil unless withStore
	closers []func() error
}

type appOptions struct {
	withStore bool
	quiet     bool // CLI output: only warnings go to the log
}

// newApp loads config and builds the dependencies a command needs
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	switch {
	case verbose:
		cfg.LogLevel = "debug"
	case opts.quiet:
		cfg.LogLevel = "warn"
		cfg.LogFormat = "console"
	}

	// logs go to stderr so tables and CSV on stdout stay clean
	log := logger.NewWithWriter(cfg, os.Stderr)
	a := &app{cfg: cfg, log: log}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rdb = redis.Disabled()
	}
	a.redis = rdb
	a.closers = append(a.closers, rdb.Close)

	client := httputil.New(log, cfg.Rates.SourceTimeout)
	a.rates, a.warm = ratesource.Build(cfg.Rates, redis.NewCache(rdb, "investsim"), client, log)

	a.engine = montecarlo.NewEngine(montecarlo.Config{
		Seed:      cfg.Simulation.Seed,
		Workers:   cfg.Simulation.Workers,
		BatchSize: cfg.Simulation.BatchSize,
	}, log, ratesource.AsProvider(a.rates))

	if opts.withStore {
		runs, err := store.Open(ctx, cfg, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open run store: %w", err)
		}
		a.runs = runs
		a.closers = append(a.closers, runs.Close)
	}

	return a, nil
}

// quota shared simulation limiter; nil when redis is off
func (a *app) quota() *redis.RateLimiter {
	if !a.redis.Enabled() {
		return nil
	}
	return redis.NewRateLimiter(a.redis, "investsim")
}

// Close releases everything in reverse order
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
