package catalog

import (
	"context"
	"time"
)

// Browser drives the rendered page session. All operations are fallible and
// retryable; implementations own exactly one page for the lifetime of a run.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	ScrollToBottom(ctx context.Context) error
	PageHeight(ctx context.Context) (int64, error)
	HTML(ctx context.Context) (string, error)
	LinkHrefs(ctx context.Context, selector string) ([]string, error)
	Location(ctx context.Context) (string, error)
	Close() error
}

// ModelHandle is the loaded embedding model. Infer must be deterministic and
// side-effect-free for identical input bytes.
type ModelHandle interface {
	Name() string
	Dimension() int
	Infer(ctx context.Context, image []byte) ([]float32, error)
}

// ImageFetcher downloads raw image bytes.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// RecordStore persists product records with insert-or-update semantics keyed
// by record ID. Repeated upserts of the same record must never create a
// second row. Ping reports whether the backend is currently reachable.
type RecordStore interface {
	Upsert(ctx context.Context, record ProductRecord) error
	Ping(ctx context.Context) error
	Close()
}

// Publisher pushes ingestion events downstream.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore archives raw artifacts (primary image bytes) and returns a URI.
type BlobStore interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Governor enforces minimum spacing between outbound visits of a kind.
type Governor interface {
	Wait(ctx context.Context, kind VisitKind) error
}

// VisitKind distinguishes pacing buckets.
type VisitKind string

// Visit kinds recognized by the governor.
const (
	VisitProduct  VisitKind = "product"
	VisitCategory VisitKind = "category"
)

// Clock returns the current time (substitutable for testing).
type Clock interface {
	Now() time.Time
}
