package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"catalog-ingest/internal/catalog"
)

func TestWaitEnforcesMinimumSpacing(t *testing.T) {
	t.Parallel()

	g := New(Config{ProductInterval: 100 * time.Millisecond, CategoryInterval: time.Second})
	ctx := context.Background()

	// First call is immediate (burst 1).
	if err := g.Wait(ctx, catalog.VisitProduct); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var prev time.Time
	for i := 0; i < 3; i++ {
		start := time.Now()
		if err := g.Wait(ctx, catalog.VisitProduct); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !prev.IsZero() {
			gap := start.Sub(prev)
			if gap < 80*time.Millisecond {
				t.Errorf("visit %d: gap %v below configured interval", i, gap)
			}
		}
		prev = time.Now()
	}
}

func TestKindsPaceIndependently(t *testing.T) {
	t.Parallel()

	g := New(Config{ProductInterval: time.Second, CategoryInterval: time.Second})
	ctx := context.Background()

	if err := g.Wait(ctx, catalog.VisitProduct); err != nil {
		t.Fatal(err)
	}

	// Category bucket must not be drained by the product call.
	start := time.Now()
	if err := g.Wait(ctx, catalog.VisitCategory); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("category visit blocked by product pacing")
	}
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	g := New(Config{ProductInterval: time.Minute, CategoryInterval: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := g.Wait(ctx, catalog.VisitProduct); err != nil {
		t.Fatal(err)
	}
	if err := g.Wait(ctx, catalog.VisitProduct); err == nil {
		t.Fatal("expected cancellation error while waiting out a 1m interval")
	}
}

func TestWaitObservesPaceDelay(t *testing.T) {
	t.Parallel()

	g := New(Config{ProductInterval: 10 * time.Millisecond, CategoryInterval: 10 * time.Millisecond})
	ctx := context.Background()

	if err := g.Wait(ctx, catalog.VisitProduct); err != nil {
		t.Fatal(err)
	}
	if err := g.Wait(ctx, catalog.VisitProduct); err != nil {
		t.Fatal(err)
	}

	n, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "ingest_pace_delay_seconds")
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if n == 0 {
		t.Fatal("expected pace delay histogram to record waits")
	}
}

func TestDefaultsApplied(t *testing.T) {
	t.Parallel()

	g := New(Config{})
	if g.cfg.ProductInterval != time.Second {
		t.Errorf("product interval default = %v", g.cfg.ProductInterval)
	}
	if g.cfg.CategoryInterval != 3*time.Second {
		t.Errorf("category interval default = %v", g.cfg.CategoryInterval)
	}
}
