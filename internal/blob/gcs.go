// Package blob archives raw image bytes alongside the catalog database.
package blob

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
)

// GCSConfig names the bucket that receives archived images.
type GCSConfig struct {
	Bucket string
}

// GCS writes image artifacts to a Google Cloud Storage bucket. Authentication
// goes through Application Default Credentials.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS creates the client and verifies the bucket is reachable, so a
// misconfigured archive fails at startup rather than mid-run.
func NewGCS(ctx context.Context, cfg GCSConfig) (*GCS, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("bucket %q attributes: %w", cfg.Bucket, err)
	}
	return &GCS{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads the bytes and returns the gs:// URI of the object.
func (g *GCS) Put(ctx context.Context, path string, contentType string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("object path is required")
	}
	w := g.client.Bucket(g.bucket).Object(path).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			return "", fmt.Errorf("write object %s: %w (close: %v)", path, err, closeErr)
		}
		return "", fmt.Errorf("write object %s: %w", path, err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", path, err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, path), nil
}

// Close releases the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}
