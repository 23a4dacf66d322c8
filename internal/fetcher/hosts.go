package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/IshaanNene/NewsGoat/internal/config"
	"github.com/IshaanNene/NewsGoat/internal/types"
)

// hostGuard holds the politeness and failure state for one host: a token
// bucket, a cap on in-flight requests, and a circuit breaker.
type hostGuard struct {
	limiter  *rate.Limiter
	inflight *semaphore.Weighted
	breaker  *gobreaker.CircuitBreaker
}

// hostRegistry lazily creates one hostGuard per host.
type hostRegistry struct {
	mu     sync.Mutex
	hosts  map[string]*hostGuard
	cfg    *config.FetcherConfig
	logger *slog.Logger
}

func newHostRegistry(cfg *config.FetcherConfig, logger *slog.Logger) *hostRegistry {
	return &hostRegistry{
		hosts:  make(map[string]*hostGuard),
		cfg:    cfg,
		logger: logger,
	}
}

func (r *hostRegistry) get(host string) *hostGuard {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.hosts[host]; ok {
		return g
	}

	limit := rate.Inf
	if r.cfg.HostRate > 0 {
		limit = rate.Limit(r.cfg.HostRate)
	}
	burst := max(r.cfg.HostBurst, 1)
	perHost := int64(max(r.cfg.LimitPerHost, 1))
	failures := r.cfg.BreakerFailures

	g := &hostGuard{
		limiter:  rate.NewLimiter(limit, burst),
		inflight: semaphore.NewWeighted(perHost),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        host,
			MaxRequests: 1,
			Timeout:     r.cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return failures > 0 && counts.ConsecutiveFailures >= failures
			},
			// Only failures that say something about the host's health count.
			IsSuccessful: func(err error) bool {
				if err == nil {
					return true
				}
				var ferr *types.FetchError
				return errors.As(err, &ferr) && !ferr.Retryable
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				r.logger.Warn("circuit breaker state changed",
					"host", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
	}
	r.hosts[host] = g
	return g
}

// acquire waits for a rate token and an in-flight slot.
func (g *hostGuard) acquire(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	return g.inflight.Acquire(ctx, 1)
}

func (g *hostGuard) release() {
	g.inflight.Release(1)
}
