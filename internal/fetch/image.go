// Package fetch downloads raw image bytes with a Colly collector.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	MaxBytes  int
}

// ImageFetcher implements catalog.ImageFetcher using a Colly collector with
// connection pooling and a size guard.
type ImageFetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds an ImageFetcher.
func New(cfg Config) *ImageFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 20 << 20
	}

	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(&http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	return &ImageFetcher{cfg: cfg, baseCollector: c}
}

// Fetch retrieves the bytes at url and reports the served content type.
func (f *ImageFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	var (
		data        []byte
		contentType string
		fetchErr    error
	)

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.MaxBodySize = f.cfg.MaxBytes

	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode != http.StatusOK {
			fetchErr = fmt.Errorf("image fetch %s: status %d", url, r.StatusCode)
			return
		}
		data = append([]byte(nil), r.Body...)
		contentType = r.Headers.Get("Content-Type")
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("image fetch %s: %w", url, err)
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("image fetch %s canceled: %w", url, ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, "", fmt.Errorf("image fetch %s: %w", url, err)
		}
	}

	if fetchErr != nil {
		return nil, "", fetchErr
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("image fetch %s: empty body", url)
	}
	return data, contentType, nil
}
