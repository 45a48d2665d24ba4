package ratesource

import (
	"context"
	"time"

	"github.com/wonny/invest-sim/pkg/config"
	"github.com/wonny/invest-sim/pkg/httputil"
	"github.com/wonny/invest-sim/pkg/logger"
	"github.com/wonny/invest-sim/pkg/redis"
)

// Cache is the subset of *redis.Cache used here
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Cached serves quotes from the cache and refreshes from next on a miss.
// Cache failures degrade to a direct fetch.
type Cached struct {
	next  Source
	cache Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewCached wraps next with a cache (ttl 0 = 24h)
func NewCached(next Source, cache Cache, ttl time.Duration, log *logger.Logger) *Cached {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Cached{next: next, cache: cache, ttl: ttl, log: log}
}

// Quote implements Source
func (c *Cached) Quote(ctx context.Context) (Quote, error) {
	var q Quote
	found, err := c.cache.Get(ctx, redis.RiskFreeRateKey(), &q)
	if err != nil {
		c.log.WithError(err).Warn("risk-free cache read failed")
	}
	if found {
		return q, nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches from next and stores the quote regardless of what is cached
func (c *Cached) Refresh(ctx context.Context) (Quote, error) {
	q, err := c.next.Quote(ctx)
	if err != nil {
		return Quote{}, err
	}
	if err := c.cache.Set(ctx, redis.RiskFreeRateKey(), q, c.ttl); err != nil {
		c.log.WithError(err).Warn("risk-free cache write failed")
	}
	c.log.WithFields(map[string]interface{}{
		"rate":   q.Rate,
		"source": q.Source,
	}).Debug("risk-free rate refreshed")
	return q, nil
}

// Refresher is implemented by sources that can be warmed ahead of use
type Refresher interface {
	Refresh(ctx context.Context) (Quote, error)
}

// Build assembles the configured chain: manual, then cached remote, then fallback.
// cache and client may be nil, which disables the cache and the remote source.
func Build(cfg config.RatesConfig, cache Cache, client *httputil.Client, log *logger.Logger) (*Chain, Refresher) {
	var (
		manual, remote Source
		warm           Refresher
	)
	if cfg.ManualSet {
		manual = NewManual(cfg.Manual)
	}
	if cfg.SourceURL != "" && client != nil {
		remote = NewRemote(client, cfg.SourceURL, cfg.SourceField)
		if cfg.CacheEnabled && cache != nil {
			cached := NewCached(remote, cache, cfg.CacheTTL, log)
			remote, warm = cached, cached
		}
	}
	return NewChain(log, manual, remote, NewFallback(cfg.Fallback)), warm
}
