package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/publisher/memory"
	"catalog-ingest/internal/record"
	"catalog-ingest/internal/store"
)

type fakeCrawler struct {
	links map[string][]string
	errs  map[string]error
}

func (f *fakeCrawler) Crawl(_ context.Context, categoryURL string) ([]string, error) {
	if err := f.errs[categoryURL]; err != nil {
		return nil, err
	}
	return f.links[categoryURL], nil
}

type fakeExtractor struct {
	errs map[string]error
}

func (f *fakeExtractor) Extract(_ context.Context, productURL string) (*catalog.ExtractionAttempt, error) {
	if err := f.errs[productURL]; err != nil {
		return nil, err
	}
	return &catalog.ExtractionAttempt{
		ProductURL: productURL,
		Title:      "Product at " + productURL,
		ImageURL:   productURL + "/image.jpg",
		Currency:   "USD",
		Gender:     catalog.GenderOther,
	}, nil
}

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vec := make([]float32, catalog.EmbeddingDimension)
	vec[0] = 1
	return vec, nil
}

type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func productURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://www.ae.com/us/en/p/item-%d", i)
	}
	return urls
}

func newTestOrchestrator(cfg Config, crawler LinkCrawler, extractor ProductExtractor, embedder ImageEmbedder) (*Orchestrator, *store.Memory, *memory.Publisher) {
	st := store.NewMemory()
	pub := memory.New()
	builder := record.New(record.Config{Source: cfg.Source, Brand: "American Eagle"})
	clock := &steppingClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	o := New(crawler, extractor, embedder, builder, st, pub, clock, cfg, zap.NewNop())
	return o, st, pub
}

func TestRunIngestsDiscoveredProducts(t *testing.T) {
	t.Parallel()

	urls := productURLs(3)
	crawler := &fakeCrawler{links: map[string][]string{
		"https://www.ae.com/us/en/c/men": urls,
		// Overlapping links must not produce duplicate work.
		"https://www.ae.com/us/en/c/sale": {urls[0], urls[2]},
	}}
	cfg := Config{
		Source:       "scraper",
		CategoryURLs: []string{"https://www.ae.com/us/en/c/men", "https://www.ae.com/us/en/c/sale"},
	}
	o, st, pub := newTestOrchestrator(cfg, crawler, &fakeExtractor{}, &fakeEmbedder{})

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Categories)
	assert.Equal(t, 0, summary.CategoriesFailed)
	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 3, st.Len())
	assert.NotEmpty(t, summary.RunID)
	assert.True(t, summary.FinishedAt.After(summary.StartedAt))

	ingested := pub.ByTopic(TopicProductIngested)
	require.Len(t, ingested, 3)
	finished := pub.ByTopic(TopicRunFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, summary, finished[0].Payload.(RunFinished).Summary)
}

func TestRunIsolatesProductFailures(t *testing.T) {
	t.Parallel()

	urls := productURLs(4)
	crawler := &fakeCrawler{links: map[string][]string{"cat": urls}}
	extractor := &fakeExtractor{errs: map[string]error{
		urls[1]: errors.New("selector timeout"),
	}}
	cfg := Config{Source: "scraper", CategoryURLs: []string{"cat"}}
	o, st, _ := newTestOrchestrator(cfg, crawler, extractor, &fakeEmbedder{})

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Attempted)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{urls[1]}, summary.FailedURLSample)
	assert.Equal(t, 3, st.Len())
}

func TestRunDegradesWhenEmbeddingFails(t *testing.T) {
	t.Parallel()

	urls := productURLs(2)
	crawler := &fakeCrawler{links: map[string][]string{"cat": urls}}
	embedder := &fakeEmbedder{err: errors.New("model unavailable")}
	cfg := Config{Source: "scraper", CategoryURLs: []string{"cat"}}
	o, st, _ := newTestOrchestrator(cfg, crawler, &fakeExtractor{}, embedder)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 2, summary.EmbeddingsMissing)
	require.Equal(t, 2, st.Len())
	for _, u := range urls {
		rec, ok := st.Get(record.Digest(u))
		require.True(t, ok)
		assert.Nil(t, rec.Embedding)
	}
}

func TestRunTestModeCapsProducts(t *testing.T) {
	t.Parallel()

	crawler := &fakeCrawler{links: map[string][]string{"cat": productURLs(12)}}
	cfg := Config{Source: "scraper", CategoryURLs: []string{"cat"}, TestMode: true}
	o, st, _ := newTestOrchestrator(cfg, crawler, &fakeExtractor{}, &fakeEmbedder{})

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Attempted)
	assert.Equal(t, 7, summary.Skipped)
	assert.Equal(t, 5, st.Len())
}

func TestRunContinuesPastFailedCategory(t *testing.T) {
	t.Parallel()

	urls := productURLs(2)
	crawler := &fakeCrawler{
		links: map[string][]string{"good": urls},
		errs:  map[string]error{"bad": errors.New("navigation failed")},
	}
	cfg := Config{Source: "scraper", CategoryURLs: []string{"bad", "good"}}
	o, st, _ := newTestOrchestrator(cfg, crawler, &fakeExtractor{}, &fakeEmbedder{})

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.CategoriesFailed)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 2, st.Len())
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	t.Parallel()

	crawler := &fakeCrawler{links: map[string][]string{"cat": productURLs(3)}}
	cfg := Config{Source: "scraper", CategoryURLs: []string{"cat"}}
	o, st, _ := newTestOrchestrator(cfg, crawler, &fakeExtractor{}, &fakeEmbedder{})

	_, err := o.Run(context.Background())
	require.NoError(t, err)
	_, err = o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, st.Len())
	assert.Equal(t, 6, st.Upserts())
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	crawler := &fakeCrawler{links: map[string][]string{"cat": productURLs(3)}}
	cfg := Config{Source: "scraper", CategoryURLs: []string{"cat"}}
	o, _, _ := newTestOrchestrator(cfg, crawler, &fakeExtractor{}, &fakeEmbedder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := o.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, summary.Succeeded)
}
