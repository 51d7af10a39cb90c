// Package extract pulls structured product fields out of rendered pages
// using ordered fallback strategies per field.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"catalog-ingest/internal/catalog"
)

// Config tunes the per-product visit.
type Config struct {
	// SettleDelay is the pause after navigation before the DOM is read, so
	// late-hydrating content has a chance to land.
	SettleDelay time.Duration
}

// Extractor visits one product URL at a time, applying the field strategy
// lists to the rendered DOM. A missing field never aborts the product; only
// total page-load failure is terminal.
type Extractor struct {
	browser  catalog.Browser
	retrier  *catalog.Retrier
	governor catalog.Governor
	logger   *zap.Logger
	cfg      Config
}

// New constructs an Extractor.
func New(browser catalog.Browser, retrier *catalog.Retrier, governor catalog.Governor, cfg Config, logger *zap.Logger) *Extractor {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 2 * time.Second
	}
	return &Extractor{
		browser:  browser,
		retrier:  retrier,
		governor: governor,
		logger:   logger,
		cfg:      cfg,
	}
}

// Extract loads productURL and fills an ExtractionAttempt field by field.
func (e *Extractor) Extract(ctx context.Context, productURL string) (*catalog.ExtractionAttempt, error) {
	if err := e.governor.Wait(ctx, catalog.VisitProduct); err != nil {
		return nil, err
	}

	err := e.retrier.Do(ctx, func(ctx context.Context) error {
		return e.browser.Navigate(ctx, productURL)
	})
	if err != nil {
		return nil, &catalog.ExtractionFailedError{URL: productURL, Cause: err}
	}

	if err := e.settle(ctx); err != nil {
		return nil, err
	}

	html, err := e.browser.HTML(ctx)
	if err != nil {
		return nil, &catalog.ExtractionFailedError{URL: productURL, Cause: err}
	}

	location := productURL
	if loc, locErr := e.browser.Location(ctx); locErr == nil && loc != "" {
		location = loc
	}

	attempt, err := e.FromHTML(html, location)
	if err != nil {
		return nil, &catalog.ExtractionFailedError{URL: productURL, Cause: err}
	}
	return attempt, nil
}

// FromHTML runs the strategy lists against an already rendered DOM snapshot.
// Split out so field extraction is testable without a live browser.
func (e *Extractor) FromHTML(html, productURL string) (*catalog.ExtractionAttempt, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, catalog.Permanent(err)
	}

	p := &page{doc: doc, ld: parseProductLD(doc)}

	attempt := &catalog.ExtractionAttempt{
		ProductURL: productURL,
		VisitedAt:  time.Now().UTC(),
	}

	attempt.Title = firstNonEmpty(p, titleStrategies)
	attempt.Description = firstNonEmpty(p, descriptionStrategies)
	attempt.ImageURL = firstNonEmpty(p, imageStrategies)
	attempt.Sizes = collectSizes(p)
	attempt.Breadcrumbs = collectBreadcrumbs(p)
	if len(attempt.Breadcrumbs) > 0 {
		attempt.Category = attempt.Breadcrumbs[len(attempt.Breadcrumbs)-1]
	}
	attempt.Gender = InferGender(productURL, attempt.Breadcrumbs)

	if raw := firstNonEmpty(p, priceStrategies); raw != "" {
		price, currency := ParsePrice(raw)
		attempt.Price = price
		attempt.Currency = currency
	}
	if attempt.Currency == "" {
		attempt.Currency = "USD"
	}

	e.logMisses(productURL, attempt)
	return attempt, nil
}

func (e *Extractor) logMisses(productURL string, attempt *catalog.ExtractionAttempt) {
	if attempt.Title == "" {
		e.logger.Warn("all title strategies missed", zap.String("url", productURL))
	}
	if attempt.ImageURL == "" {
		e.logger.Warn("no product image found", zap.String("url", productURL))
	}
	if attempt.Price == nil {
		e.logger.Debug("no price extracted", zap.String("url", productURL))
	}
}

func (e *Extractor) settle(ctx context.Context) error {
	timer := time.NewTimer(e.cfg.SettleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
