// Package pipeline sequences a full ingestion run: category crawl, product
// extraction, embedding, and persistence.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/metrics"
	"catalog-ingest/internal/record"
)

// LinkCrawler discovers product URLs on a category page.
type LinkCrawler interface {
	Crawl(ctx context.Context, categoryURL string) ([]string, error)
}

// ProductExtractor pulls structured fields from a product page.
type ProductExtractor interface {
	Extract(ctx context.Context, productURL string) (*catalog.ExtractionAttempt, error)
}

// ImageEmbedder computes the embedding for a product's primary image.
type ImageEmbedder interface {
	Embed(ctx context.Context, imageURL string) ([]float32, error)
}

// Config controls one ingestion run.
type Config struct {
	Source              string
	CategoryURLs        []string
	TestMode            bool
	TestModeLimit       int
	FailedURLSampleSize int
}

const (
	defaultTestModeLimit       = 5
	defaultFailedURLSampleSize = 10
)

// Orchestrator drives the sequential ingestion loop. One page session visits
// one page at a time, so nothing here is concurrent on purpose.
type Orchestrator struct {
	crawler   LinkCrawler
	extractor ProductExtractor
	embedder  ImageEmbedder
	builder   *record.Builder
	store     catalog.RecordStore
	publisher catalog.Publisher
	clock     catalog.Clock
	logger    *zap.Logger
	cfg       Config
}

// New wires the pipeline stages together. The publisher may be nil, in which
// case events are dropped.
func New(
	crawler LinkCrawler,
	extractor ProductExtractor,
	embedder ImageEmbedder,
	builder *record.Builder,
	store catalog.RecordStore,
	publisher catalog.Publisher,
	clock catalog.Clock,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.TestModeLimit <= 0 {
		cfg.TestModeLimit = defaultTestModeLimit
	}
	if cfg.FailedURLSampleSize <= 0 {
		cfg.FailedURLSampleSize = defaultFailedURLSampleSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		crawler:   crawler,
		extractor: extractor,
		embedder:  embedder,
		builder:   builder,
		store:     store,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run executes one full ingestion pass over the configured categories and
// returns its summary. Per-product failures are absorbed into counters; Run
// itself fails only when the context is canceled.
func (o *Orchestrator) Run(ctx context.Context) (catalog.RunSummary, error) {
	metrics.Init()

	summary := catalog.RunSummary{
		RunID:      uuid.NewString(),
		Source:     o.cfg.Source,
		Categories: len(o.cfg.CategoryURLs),
		StartedAt:  o.clock.Now(),
	}
	log := o.logger.With(zap.String("run_id", summary.RunID))
	log.Info("starting ingestion run",
		zap.Int("categories", summary.Categories),
		zap.Bool("test_mode", o.cfg.TestMode))

	productURLs, failedCategories := o.discover(ctx, log)
	summary.CategoriesFailed = failedCategories
	metrics.AddDiscovered(len(productURLs))

	limit := len(productURLs)
	if o.cfg.TestMode && limit > o.cfg.TestModeLimit {
		limit = o.cfg.TestModeLimit
		summary.Skipped = len(productURLs) - limit
		log.Info("test mode active, capping run",
			zap.Int("discovered", len(productURLs)),
			zap.Int("limit", limit))
	}

	for _, productURL := range productURLs[:limit] {
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = o.clock.Now()
			metrics.ObserveRun("canceled")
			return summary, fmt.Errorf("run canceled: %w", err)
		}
		summary.Attempted++
		if err := o.processProduct(ctx, log, summary.RunID, productURL, &summary); err != nil {
			summary.Failed++
			if len(summary.FailedURLSample) < o.cfg.FailedURLSampleSize {
				summary.FailedURLSample = append(summary.FailedURLSample, productURL)
			}
			log.Warn("product failed", zap.String("url", productURL), zap.Error(err))
		} else {
			summary.Succeeded++
		}
	}

	summary.FinishedAt = o.clock.Now()
	o.publish(ctx, log, TopicRunFinished, RunFinished{Summary: summary})
	metrics.ObserveRun("completed")
	log.Info("ingestion run finished",
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("embeddings_missing", summary.EmbeddingsMissing),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))
	return summary, nil
}

// discover crawls every category and returns the deduplicated product URLs in
// first-seen order. A category that fails is counted and skipped; the run
// continues with whatever the other categories yielded.
func (o *Orchestrator) discover(ctx context.Context, log *zap.Logger) ([]string, int) {
	seen := make(map[string]struct{})
	var ordered []string
	failed := 0
	for _, categoryURL := range o.cfg.CategoryURLs {
		urls, err := o.crawler.Crawl(ctx, categoryURL)
		if err != nil {
			failed++
			metrics.ObserveCategory("failed")
			log.Warn("category crawl failed", zap.String("url", categoryURL), zap.Error(err))
			continue
		}
		metrics.ObserveCategory("succeeded")
		for _, u := range urls {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			ordered = append(ordered, u)
		}
		log.Info("category crawled",
			zap.String("url", categoryURL),
			zap.Int("links", len(urls)),
			zap.Int("total_unique", len(ordered)))
	}
	return ordered, failed
}

// processProduct takes one product URL through extraction, embedding, build,
// and upsert. Embedding failures degrade to a record without an embedding;
// extraction and persistence failures fail the product.
func (o *Orchestrator) processProduct(ctx context.Context, log *zap.Logger, runID, productURL string, summary *catalog.RunSummary) error {
	start := o.clock.Now()

	attempt, err := o.extractor.Extract(ctx, productURL)
	if err != nil {
		metrics.ObserveProduct("failed", o.clock.Now().Sub(start))
		return fmt.Errorf("extract: %w", err)
	}

	var embedding []float32
	if attempt.ImageURL == "" {
		summary.EmbeddingsMissing++
		metrics.ObserveEmbedding("missing")
		log.Debug("no image found, skipping embedding", zap.String("url", productURL))
	} else {
		embedding, err = o.embedder.Embed(ctx, attempt.ImageURL)
		if err != nil {
			summary.EmbeddingsMissing++
			metrics.ObserveEmbedding("missing")
			log.Warn("embedding failed, persisting without it",
				zap.String("url", productURL),
				zap.String("image_url", attempt.ImageURL),
				zap.Error(err))
			embedding = nil
		} else {
			metrics.ObserveEmbedding("ok")
		}
	}

	rec, err := o.builder.Build(attempt, embedding)
	if err != nil {
		metrics.ObserveProduct("failed", o.clock.Now().Sub(start))
		return fmt.Errorf("build record: %w", err)
	}

	if err := o.store.Upsert(ctx, rec); err != nil {
		metrics.ObserveUpsert("failed")
		metrics.ObserveProduct("failed", o.clock.Now().Sub(start))
		return fmt.Errorf("upsert: %w", err)
	}
	metrics.ObserveUpsert("ok")
	metrics.ObserveProduct("succeeded", o.clock.Now().Sub(start))

	o.publish(ctx, log, TopicProductIngested, ProductIngested{
		RunID:        runID,
		RecordID:     rec.ID,
		Source:       rec.Source,
		ProductURL:   rec.ProductURL,
		Title:        rec.Title,
		HasEmbedding: len(rec.Embedding) > 0,
		IngestedAt:   o.clock.Now(),
	})

	log.Info("product ingested",
		zap.String("id", rec.ID),
		zap.String("url", rec.ProductURL),
		zap.Bool("has_embedding", len(rec.Embedding) > 0))
	return nil
}

// publish is best-effort; a broker outage never fails a product or a run.
func (o *Orchestrator) publish(ctx context.Context, log *zap.Logger, topic string, payload any) {
	if o.publisher == nil {
		return
	}
	if _, err := o.publisher.Publish(ctx, topic, payload); err != nil {
		log.Warn("event publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
