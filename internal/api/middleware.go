package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/invest-sim/pkg/config"
	"github.com/wonny/invest-sim/pkg/logger"
	"github.com/wonny/invest-sim/pkg/redis"
)

// =============================================================================
// Logging / recovery
// =============================================================================

// statusRecorder captures the status code; Hijack is passed through for WebSocket upgrades
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					writeError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// =============================================================================
// Simulation limits
// =============================================================================

// Limits throttles simulation requests per client.
// A local token bucket guards this instance; the optional redis quota is
// shared across instances.
type Limits struct {
	perSecond rate.Limit
	burst     int

	mu      sync.Mutex
	clients map[string]*clientLimiter

	quota       *redis.RateLimiter
	quotaLimit  int
	quotaWindow time.Duration

	logger *logger.Logger
	clock  func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// idleClientTTL local limiters unused for this long are dropped
const idleClientTTL = 10 * time.Minute

// NewLimits builds limits from config. quota may be nil.
func NewLimits(cfg config.APIConfig, quota *redis.RateLimiter, log *logger.Logger) *Limits {
	if log == nil {
		log = logger.Nop()
	}
	perSecond := rate.Limit(cfg.RateLimitPerSecond)
	if cfg.RateLimitPerSecond <= 0 {
		perSecond = rate.Inf
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	l := &Limits{
		perSecond: perSecond,
		burst:     burst,
		clients:   make(map[string]*clientLimiter),
		logger:    log,
		clock:     time.Now,
	}
	if quota != nil && cfg.QuotaPerWindow > 0 && cfg.QuotaWindow > 0 {
		l.quota = quota
		l.quotaLimit = cfg.QuotaPerWindow
		l.quotaWindow = cfg.QuotaWindow
	}
	return l
}

// limiter returns the client's bucket and drops idle ones
func (l *Limits) limiter(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > idleClientTTL {
			delete(l.clients, key)
		}
	}

	c, ok := l.clients[client]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.clients[client] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Middleware rejects over-limit requests with 429
func (l *Limits) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientKey(r)

		if !l.limiter(client).Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many simulation requests")
			return
		}

		if l.quota != nil {
			allowed, remaining, err := l.quota.Allow(r.Context(), redis.SimulationQuota(client, l.quotaLimit, l.quotaWindow))
			switch {
			case err != nil:
				// quota store down: the local limiter still applies
				l.logger.WithError(err).Warn("Simulation quota check failed")
			case !allowed:
				w.Header().Set("Retry-After", strconv.Itoa(int(l.quotaWindow.Seconds())))
				writeError(w, http.StatusTooManyRequests, "simulation quota exceeded")
				return
			default:
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			}
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the caller by remote IP
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
