// Package embed converts product images into fixed-length visual embeddings
// via an inference service.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"catalog-ingest/internal/catalog"
)

// ModelConfig locates the embedding inference service.
type ModelConfig struct {
	// Endpoint is the service base URL, e.g. http://siglip:8091.
	Endpoint string
	// Model names the served checkpoint.
	Model string
	// Dimension is the expected vector length.
	Dimension int
	// Timeout bounds a single inference round trip.
	Timeout time.Duration
}

// serviceHandle implements catalog.ModelHandle against the HTTP service.
// One handle is loaded per process and reused for every product.
type serviceHandle struct {
	client    *http.Client
	endpoint  string
	model     string
	dimension int
}

// LoadModel verifies the inference service is reachable and serving the
// configured model, paying the service's one-time model-load cost up front.
// This is the memory-heavy collaborator: failure here must degrade to
// "no embeddings this run", not abort ingestion.
func LoadModel(ctx context.Context, cfg ModelConfig) (catalog.ModelHandle, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = catalog.EmbeddingDimension
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	h := &serviceHandle{
		client:    &http.Client{Timeout: cfg.Timeout},
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Endpoint+"/healthz", nil)
	if err != nil {
		return nil, fmt.Errorf("build health request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service unreachable: %w", err)
	}
	defer discard(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service health: status %d", resp.StatusCode)
	}
	return h, nil
}

func (h *serviceHandle) Name() string   { return h.model }
func (h *serviceHandle) Dimension() int { return h.dimension }

type inferResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// Infer posts the image bytes and returns the embedding vector.
func (h *serviceHandle) Infer(ctx context.Context, image []byte) ([]float32, error) {
	if len(image) == 0 {
		return nil, catalog.Permanent(fmt.Errorf("empty image"))
	}

	url := h.endpoint + "/embed"
	if h.model != "" {
		url += "?model=" + h.model
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("build infer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("infer: %w", err)
	}
	defer discard(resp.Body)

	if resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusBadRequest {
		// Undecodable input will not improve on retry.
		return nil, catalog.Permanent(fmt.Errorf("infer: status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("infer: status %d", resp.StatusCode)
	}

	var out inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("infer: %s", out.Error)
	}
	return out.Embedding, nil
}

func discard(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
