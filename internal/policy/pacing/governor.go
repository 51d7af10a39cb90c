// Package pacing enforces minimum wall-clock spacing between outbound visits.
package pacing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/metrics"
)

// Config holds the minimum interval per visit kind.
type Config struct {
	ProductInterval  time.Duration
	CategoryInterval time.Duration
}

// Governor spaces visits of each kind at least the configured interval apart.
// Burst is fixed at 1 so the first call never waits and every subsequent call
// of the same kind honors the full interval.
type Governor struct {
	mu       sync.Mutex
	limiters map[catalog.VisitKind]*rate.Limiter
	cfg      Config
}

// New creates a Governor. Non-positive intervals fall back to the defaults:
// 1s between products, 3s between categories.
func New(cfg Config) *Governor {
	if cfg.ProductInterval <= 0 {
		cfg.ProductInterval = time.Second
	}
	if cfg.CategoryInterval <= 0 {
		cfg.CategoryInterval = 3 * time.Second
	}
	metrics.Init()
	return &Governor{
		limiters: make(map[catalog.VisitKind]*rate.Limiter),
		cfg:      cfg,
	}
}

// Wait blocks until the interval for kind has elapsed since the previous call
// of that kind, respecting context cancellation. Unknown kinds pace like
// products.
func (g *Governor) Wait(ctx context.Context, kind catalog.VisitKind) error {
	g.mu.Lock()
	limiter, ok := g.limiters[kind]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(g.interval(kind)), 1)
		g.limiters[kind] = limiter
	}
	g.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pacing wait (%s): %w", kind, err)
	}
	metrics.ObservePaceDelay(string(kind), time.Since(start))
	return nil
}

func (g *Governor) interval(kind catalog.VisitKind) time.Duration {
	if kind == catalog.VisitCategory {
		return g.cfg.CategoryInterval
	}
	return g.cfg.ProductInterval
}
