// Package record normalizes extraction attempts into persistable product
// records.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"catalog-ingest/internal/catalog"
)

// Config carries the constants stamped on every record from this pipeline.
type Config struct {
	Source string
	Brand  string
}

// Builder performs the pure transform from attempt to record. No I/O; the
// only failure mode is a precondition violation (missing product URL).
type Builder struct {
	cfg Config
}

// New constructs a Builder.
func New(cfg Config) *Builder {
	if cfg.Source == "" {
		cfg.Source = "scraper"
	}
	return &Builder{cfg: cfg}
}

// Digest derives the record ID: hex SHA-256 of the canonical product URL.
// Identical URLs always produce identical IDs, which is what makes the
// downstream upsert idempotent.
func Digest(canonicalURL string) string {
	sum := sha256.Sum256([]byte(canonicalURL))
	return hex.EncodeToString(sum[:])
}

// Build assembles a ProductRecord from the attempt and an optional embedding.
// A nil embedding is persisted as such; it never blocks the record.
func (b *Builder) Build(attempt *catalog.ExtractionAttempt, embedding []float32) (catalog.ProductRecord, error) {
	if attempt == nil || strings.TrimSpace(attempt.ProductURL) == "" {
		return catalog.ProductRecord{}, fmt.Errorf("attempt is missing its product url")
	}

	canonical, err := catalog.CanonicalURL(attempt.ProductURL)
	if err != nil {
		return catalog.ProductRecord{}, fmt.Errorf("canonicalize product url: %w", err)
	}

	gender := attempt.Gender
	if gender == "" {
		gender = catalog.GenderOther
	}
	currency := attempt.Currency
	if currency == "" {
		currency = "USD"
	}

	rec := catalog.ProductRecord{
		ID:         Digest(canonical),
		Source:     b.cfg.Source,
		ProductURL: canonical,
		ImageURL:   attempt.ImageURL,
		Brand:      b.cfg.Brand,
		Title:      strings.TrimSpace(attempt.Title),
		Gender:     gender,
		Price:      attempt.Price,
		Currency:   currency,
		SecondHand: false,
		Embedding:  embedding,
		Metadata: map[string]any{
			"breadcrumbs": attempt.Breadcrumbs,
			"scraped_at":  attempt.VisitedAt,
		},
	}

	if desc := strings.TrimSpace(attempt.Description); desc != "" {
		rec.Description = &desc
	}
	if cat := strings.TrimSpace(attempt.Category); cat != "" {
		rec.Category = &cat
	}
	if len(attempt.Sizes) > 0 {
		size := strings.Join(attempt.Sizes, ", ")
		rec.Size = &size
	}
	return rec, nil
}
