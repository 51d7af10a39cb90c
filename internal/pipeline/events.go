package pipeline

import (
	"time"

	"catalog-ingest/internal/catalog"
)

// Event topics published by the orchestrator.
const (
	TopicProductIngested = "product.ingested"
	TopicRunFinished     = "run.finished"
)

// ProductIngested announces one persisted product record.
type ProductIngested struct {
	RunID        string    `json:"run_id"`
	RecordID     string    `json:"record_id"`
	Source       string    `json:"source"`
	ProductURL   string    `json:"product_url"`
	Title        string    `json:"title"`
	HasEmbedding bool      `json:"has_embedding"`
	IngestedAt   time.Time `json:"ingested_at"`
}

// RunFinished carries the final counters for one run.
type RunFinished struct {
	Summary catalog.RunSummary `json:"summary"`
}
