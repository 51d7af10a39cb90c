// Package crawler discovers product URLs from progressively loaded category
// listing pages.
package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"catalog-ingest/internal/catalog"
)

// Config tunes the traversal loop.
type Config struct {
	// ProductLinkSelector matches anchors pointing at product detail pages.
	ProductLinkSelector string
	// GridSelector is the element whose visibility marks a loaded listing.
	GridSelector string
	// MaxScrolls caps the fixed-point iteration against pages that never
	// stop reporting growth.
	MaxScrolls int
	// StableReads is how many consecutive no-growth reads mean convergence.
	StableReads int
	// SettleDelay is the pause after each scroll before re-reading the DOM.
	SettleDelay time.Duration
	// MaxProducts, when > 0, stops discovery early (test mode).
	MaxProducts int
}

func (c Config) withDefaults() Config {
	if c.ProductLinkSelector == "" {
		c.ProductLinkSelector = `a[href*="/p/"]`
	}
	if c.GridSelector == "" {
		c.GridSelector = c.ProductLinkSelector
	}
	if c.MaxScrolls <= 0 {
		c.MaxScrolls = 50
	}
	if c.StableReads <= 0 {
		c.StableReads = 2
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 2 * time.Second
	}
	return c
}

// Crawler drives one category page to exhaustion and returns the discovered
// product URLs.
type Crawler struct {
	browser  catalog.Browser
	retrier  *catalog.Retrier
	governor catalog.Governor
	logger   *zap.Logger
	cfg      Config
}

// New constructs a Crawler.
func New(browser catalog.Browser, retrier *catalog.Retrier, governor catalog.Governor, cfg Config, logger *zap.Logger) *Crawler {
	return &Crawler{
		browser:  browser,
		retrier:  retrier,
		governor: governor,
		logger:   logger,
		cfg:      cfg.withDefaults(),
	}
}

// categoryTarget is the traversal state for one category. It lives only for
// the duration of a single Crawl call.
type categoryTarget struct {
	url        string
	scrolls    int
	lastHeight int64
	seen       map[string]struct{}
	ordered    []string
}

func newCategoryTarget(url string) *categoryTarget {
	return &categoryTarget{
		url:  url,
		seen: make(map[string]struct{}),
	}
}

// absorb merges newly read links and the current page height into the state,
// reporting whether either signal shows growth.
func (t *categoryTarget) absorb(links []string, height int64) bool {
	grew := false
	for _, link := range links {
		canonical, err := catalog.CanonicalURL(link)
		if err != nil {
			continue
		}
		if _, ok := t.seen[canonical]; ok {
			continue
		}
		t.seen[canonical] = struct{}{}
		t.ordered = append(t.ordered, canonical)
		grew = true
	}
	if height > t.lastHeight {
		t.lastHeight = height
		grew = true
	}
	return grew
}

// Crawl loads categoryURL, scrolls until discovery converges or the scroll
// cap is hit, and returns the unique product URLs found. A page that never
// loads yields an empty slice and the load error; the caller decides whether
// that fails the run (it should not).
func (c *Crawler) Crawl(ctx context.Context, categoryURL string) ([]string, error) {
	if err := c.governor.Wait(ctx, catalog.VisitCategory); err != nil {
		return nil, err
	}

	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		if err := c.browser.Navigate(ctx, categoryURL); err != nil {
			return err
		}
		return c.browser.WaitVisible(ctx, c.cfg.GridSelector)
	})
	if err != nil {
		return nil, fmt.Errorf("load category %s: %w", categoryURL, err)
	}

	target := newCategoryTarget(categoryURL)
	stable := 0

	// Absorb the initially rendered products before the first scroll.
	if err := c.readInto(ctx, target); err != nil {
		c.logger.Warn("initial listing read failed",
			zap.String("category", categoryURL), zap.Error(err))
	}

	for target.scrolls < c.cfg.MaxScrolls && !c.capReached(target) {
		if err := c.retrier.Do(ctx, c.browser.ScrollToBottom); err != nil {
			c.logger.Warn("scroll failed, stopping traversal",
				zap.String("category", categoryURL),
				zap.Int("scrolls", target.scrolls),
				zap.Error(err))
			break
		}
		target.scrolls++

		if err := c.settle(ctx); err != nil {
			return target.urls(c.cfg.MaxProducts), err
		}

		grew, err := c.read(ctx, target)
		if err != nil {
			c.logger.Warn("listing read failed",
				zap.String("category", categoryURL), zap.Error(err))
			continue
		}
		if grew {
			stable = 0
			continue
		}
		stable++
		if stable >= c.cfg.StableReads {
			break
		}
	}

	urls := target.urls(c.cfg.MaxProducts)
	c.logger.Info("category traversal converged",
		zap.String("category", categoryURL),
		zap.Int("products", len(urls)),
		zap.Int("scrolls", target.scrolls))
	return urls, nil
}

func (c *Crawler) read(ctx context.Context, target *categoryTarget) (bool, error) {
	links, err := c.browser.LinkHrefs(ctx, c.cfg.ProductLinkSelector)
	if err != nil {
		return false, err
	}
	height, err := c.browser.PageHeight(ctx)
	if err != nil {
		height = target.lastHeight
	}
	return target.absorb(filterProductLinks(links), height), nil
}

func (c *Crawler) readInto(ctx context.Context, target *categoryTarget) error {
	_, err := c.read(ctx, target)
	return err
}

func (c *Crawler) capReached(target *categoryTarget) bool {
	return c.cfg.MaxProducts > 0 && len(target.ordered) >= c.cfg.MaxProducts
}

func (c *Crawler) settle(ctx context.Context) error {
	timer := time.NewTimer(c.cfg.SettleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *categoryTarget) urls(limit int) []string {
	out := t.ordered
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return append([]string(nil), out...)
}

// filterProductLinks drops anchors that resolved to something other than a
// product detail path.
func filterProductLinks(links []string) []string {
	out := links[:0]
	for _, link := range links {
		if strings.Contains(link, "/p/") {
			out = append(out, link)
		}
	}
	return out
}
