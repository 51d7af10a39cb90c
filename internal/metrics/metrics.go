// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	productsTotal           *prometheus.CounterVec
	categoriesTotal         *prometheus.CounterVec
	embeddingsTotal         *prometheus.CounterVec
	upsertsTotal            *prometheus.CounterVec
	productDurationSeconds  prometheus.Histogram
	paceDelaySeconds        *prometheus.HistogramVec
	runsTotal               *prometheus.CounterVec
	productsDiscoveredTotal prometheus.Counter

	once sync.Once
)

// Init registers the collectors with the default registry. Safe to call more
// than once.
func Init() {
	once.Do(func() {
		productsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_products_total",
				Help: "Products processed, labeled by outcome (succeeded, failed, skipped).",
			},
			[]string{"status"},
		)

		categoriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_categories_total",
				Help: "Category pages crawled, labeled by outcome.",
			},
			[]string{"status"},
		)

		embeddingsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_embeddings_total",
				Help: "Embedding computations, labeled by outcome (ok, missing).",
			},
			[]string{"status"},
		)

		upsertsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_upserts_total",
				Help: "Record upserts, labeled by outcome.",
			},
			[]string{"status"},
		)

		productDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_product_duration_seconds",
				Help:    "Histogram of per-product processing time, visit through upsert.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 60},
			},
		)

		paceDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_pace_delay_seconds",
				Help:    "Histogram of politeness waits before outbound visits.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"kind"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_runs_total",
				Help: "Ingestion runs, labeled by outcome.",
			},
			[]string{"status"},
		)

		productsDiscoveredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_products_discovered_total",
				Help: "Unique product URLs discovered across category crawls.",
			},
		)
	})
}

// Handler returns an http.Handler serving the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveProduct counts a processed product and its wall-clock duration.
func ObserveProduct(status string, duration time.Duration) {
	productsTotal.WithLabelValues(status).Inc()
	productDurationSeconds.Observe(duration.Seconds())
}

// ObserveCategory counts a crawled category page.
func ObserveCategory(status string) {
	categoriesTotal.WithLabelValues(status).Inc()
}

// ObserveEmbedding counts an embedding attempt outcome.
func ObserveEmbedding(status string) {
	embeddingsTotal.WithLabelValues(status).Inc()
}

// ObserveUpsert counts a store upsert outcome.
func ObserveUpsert(status string) {
	upsertsTotal.WithLabelValues(status).Inc()
}

// ObservePaceDelay records how long a visit waited on the governor.
func ObservePaceDelay(kind string, duration time.Duration) {
	paceDelaySeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveRun counts a finished run.
func ObserveRun(status string) {
	runsTotal.WithLabelValues(status).Inc()
}

// AddDiscovered counts newly discovered product URLs.
func AddDiscovered(n int) {
	if n > 0 {
		productsDiscoveredTotal.Add(float64(n))
	}
}
