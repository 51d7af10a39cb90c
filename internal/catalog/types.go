// Package catalog defines core types shared across the ingestion pipeline.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Gender is the enumerated audience classification for a product.
type Gender string

// Gender values persisted with each product record.
const (
	GenderMan   Gender = "MAN"
	GenderWoman Gender = "WOMAN"
	GenderOther Gender = "OTHER"
)

// ProductRecord is the unit of persistence. ID is a pure function of the
// canonical product URL, which is what makes repeated upserts idempotent.
type ProductRecord struct {
	ID           string          `json:"id"`
	Source       string          `json:"source"`
	ProductURL   string          `json:"product_url"`
	AffiliateURL *string         `json:"affiliate_url,omitempty"`
	ImageURL     string          `json:"image_url"`
	Brand        string          `json:"brand"`
	Title        string          `json:"title"`
	Description  *string         `json:"description,omitempty"`
	Category     *string         `json:"category,omitempty"`
	Gender       Gender          `json:"gender"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Currency     string          `json:"currency"`
	Size         *string         `json:"size,omitempty"`
	SecondHand   bool            `json:"second_hand"`
	Embedding    []float32       `json:"embedding,omitempty"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// EmbeddingDimension is the fixed length of every persisted image embedding.
const EmbeddingDimension = 768

// ExtractionAttempt holds the field values collected from one product page
// visit. Fields left zero after all strategies ran stay empty in the record;
// a missing field never aborts the product.
type ExtractionAttempt struct {
	ProductURL  string
	Title       string
	Description string
	Category    string
	Breadcrumbs []string
	Gender      Gender
	Price       *decimal.Decimal
	Currency    string
	ImageURL    string
	Sizes       []string
	VisitedAt   time.Time
}

// RunSummary aggregates counters for one end-to-end ingestion run.
type RunSummary struct {
	RunID             string    `json:"run_id"`
	Source            string    `json:"source"`
	Categories        int       `json:"categories"`
	CategoriesFailed  int       `json:"categories_failed"`
	Attempted         int       `json:"attempted"`
	Succeeded         int       `json:"succeeded"`
	Failed            int       `json:"failed"`
	Skipped           int       `json:"skipped"`
	EmbeddingsMissing int       `json:"embeddings_missing"`
	FailedURLSample   []string  `json:"failed_url_sample,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}
