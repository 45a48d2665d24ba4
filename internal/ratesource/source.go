package ratesource

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/invest-sim/internal/risk"
	"github.com/wonny/invest-sim/pkg/httputil"
	"github.com/wonny/invest-sim/pkg/logger"
)

// Source names carried by Quote.Source
const (
	SourceManual   = "manual"
	SourceRemote   = "remote"
	SourceFallback = "fallback"
)

var (
	// ErrUnavailable no source in the chain produced a rate
	ErrUnavailable = errors.New("risk-free rate unavailable")
	// ErrInvalidRate a source returned a rate outside (-100, 100]
	ErrInvalidRate = errors.New("invalid risk-free rate")
)

// Quote 무위험 수익률 (연 %)
type Quote struct {
	Rate      float64   `json:"rate"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Source produces risk-free quotes
type Source interface {
	Quote(ctx context.Context) (Quote, error)
}

// AsProvider exposes a Source as the risk engine's RateProvider.
// The quote's Source tag is carried through to the risk metrics.
func AsProvider(src Source) risk.SourcedRateProvider {
	return provider{src: src}
}

type provider struct {
	src Source
}

// RiskFreeRate implements risk.RateProvider
func (p provider) RiskFreeRate(ctx context.Context) (float64, error) {
	rate, _, err := p.RiskFreeQuote(ctx)
	return rate, err
}

// RiskFreeQuote implements risk.SourcedRateProvider
func (p provider) RiskFreeQuote(ctx context.Context) (float64, string, error) {
	q, err := p.src.Quote(ctx)
	if err != nil {
		return 0, "", err
	}
	return q.Rate, q.Source, nil
}

func checkRate(rate float64) error {
	if rate <= -100 || rate > 100 {
		return fmt.Errorf("%w: %g", ErrInvalidRate, rate)
	}
	return nil
}

// =============================================================================
// Static sources
// =============================================================================

// Static returns the same rate every time
type Static struct {
	rate   float64
	source string
	clock  func() time.Time
}

// NewManual operator-configured rate
func NewManual(rate float64) *Static {
	return &Static{rate: rate, source: SourceManual, clock: time.Now}
}

// NewFallback last-resort rate used when nothing else answers
func NewFallback(rate float64) *Static {
	return &Static{rate: rate, source: SourceFallback, clock: time.Now}
}

// Quote implements Source
func (s *Static) Quote(ctx context.Context) (Quote, error) {
	if err := checkRate(s.rate); err != nil {
		return Quote{}, err
	}
	return Quote{Rate: s.rate, Source: s.source, FetchedAt: s.clock()}, nil
}

// =============================================================================
// Remote JSON source
// =============================================================================

// Remote reads the rate from a JSON document. Field is a dot path
// ("rate", "data.cdi"); numbers and numeric strings are accepted.
type Remote struct {
	client *httputil.Client
	url    string
	field  string
	clock  func() time.Time
}

// NewRemote remote JSON source
func NewRemote(client *httputil.Client, url, field string) *Remote {
	if field == "" {
		field = "rate"
	}
	return &Remote{client: client, url: url, field: field, clock: time.Now}
}

// Quote implements Source
func (r *Remote) Quote(ctx context.Context) (Quote, error) {
	var doc map[string]interface{}
	if err := r.client.GetJSON(ctx, r.url, &doc); err != nil {
		return Quote{}, fmt.Errorf("fetch risk-free rate: %w", err)
	}

	rate, err := lookupNumber(doc, r.field)
	if err != nil {
		return Quote{}, err
	}
	if err := checkRate(rate); err != nil {
		return Quote{}, err
	}
	return Quote{Rate: rate, Source: SourceRemote, FetchedAt: r.clock()}, nil
}

func lookupNumber(doc map[string]interface{}, path string) (float64, error) {
	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return 0, fmt.Errorf("field %q: not an object at %q", path, part)
		}
		if cur, ok = m[part]; !ok {
			return 0, fmt.Errorf("field %q: %q missing", path, part)
		}
	}

	switch v := cur.(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", path, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("field %q: unexpected type %T", path, cur)
}

// =============================================================================
// Chain
// =============================================================================

// Chain tries each source in order and returns the first quote
type Chain struct {
	sources []Source
	log     *logger.Logger
}

// NewChain source chain. nil entries are skipped.
func NewChain(log *logger.Logger, sources ...Source) *Chain {
	if log == nil {
		log = logger.Nop()
	}
	c := &Chain{log: log}
	for _, s := range sources {
		if s != nil {
			c.sources = append(c.sources, s)
		}
	}
	return c
}

// Quote implements Source
func (c *Chain) Quote(ctx context.Context) (Quote, error) {
	var errs []error
	for _, s := range c.sources {
		q, err := s.Quote(ctx)
		if err == nil {
			return q, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Quote{}, ctxErr
		}
		c.log.WithError(err).Warn("risk-free source failed, trying next")
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Quote{}, ErrUnavailable
	}
	return Quote{}, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}
