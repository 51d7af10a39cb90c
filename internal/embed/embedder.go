package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"catalog-ingest/internal/catalog"
)

// Embedder turns a product image URL into an embedding vector. Download,
// decode and inference failures are reported as errors the caller degrades
// to a nil embedding; they are never fatal to the product.
type Embedder struct {
	handle  catalog.ModelHandle
	fetcher catalog.ImageFetcher
	retrier *catalog.Retrier
	archive catalog.BlobStore
	logger  *zap.Logger
}

// New constructs an Embedder. archive may be nil to skip image archiving.
func New(handle catalog.ModelHandle, fetcher catalog.ImageFetcher, retrier *catalog.Retrier, archive catalog.BlobStore, logger *zap.Logger) *Embedder {
	return &Embedder{
		handle:  handle,
		fetcher: fetcher,
		retrier: retrier,
		archive: archive,
		logger:  logger,
	}
}

// Embed downloads imageURL and runs inference, validating the vector length
// against the handle's dimension.
func (e *Embedder) Embed(ctx context.Context, imageURL string) ([]float32, error) {
	if e.handle == nil {
		return nil, fmt.Errorf("no embedding model loaded")
	}

	var (
		data        []byte
		contentType string
	)
	err := e.retrier.Do(ctx, func(ctx context.Context) error {
		var ferr error
		data, contentType, ferr = e.fetcher.Fetch(ctx, imageURL)
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}

	e.archiveImage(ctx, imageURL, contentType, data)

	var vector []float32
	err = e.retrier.Do(ctx, func(ctx context.Context) error {
		var ierr error
		vector, ierr = e.handle.Infer(ctx, data)
		return ierr
	})
	if err != nil {
		return nil, fmt.Errorf("infer embedding: %w", err)
	}

	if len(vector) != e.handle.Dimension() {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vector), e.handle.Dimension())
	}
	return vector, nil
}

// archiveImage is best effort; an archive failure never blocks embedding.
func (e *Embedder) archiveImage(ctx context.Context, imageURL, contentType string, data []byte) {
	if e.archive == nil {
		return
	}
	path := "images/" + digest(imageURL)
	uri, err := e.archive.Put(ctx, path, contentType, data)
	if err != nil {
		e.logger.Warn("image archive failed", zap.String("image_url", imageURL), zap.Error(err))
		return
	}
	e.logger.Debug("image archived", zap.String("uri", uri))
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
