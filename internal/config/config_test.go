package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
source:
  category_urls:
    - https://www.ae.com/us/en/c/women/tops
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "scraper", cfg.Source.Name)
	assert.Equal(t, 50, cfg.Scrape.MaxScrolls)
	assert.Equal(t, 5, cfg.Scrape.TestModeLimit)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, "products", cfg.DB.Table)
	assert.Equal(t, time.Second, cfg.ProductDelay())
	assert.Equal(t, 3*time.Second, cfg.CategoryDelay())
	assert.Equal(t, 2*time.Second, cfg.SettleDelay())
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := writeConfigFile(t, `
source:
  name: ae-feed
  category_urls:
    - https://www.ae.com/us/en/c/men/jeans
scrape:
  test_mode: true
  max_scrolls: 10
pacing:
  product_delay_ms: 250
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ae-feed", cfg.Source.Name)
	assert.True(t, cfg.Scrape.TestMode)
	assert.Equal(t, 10, cfg.Scrape.MaxScrolls)
	assert.Equal(t, 250*time.Millisecond, cfg.ProductDelay())
}

func TestLoadRequiresCategoryURLs(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category_urls")
}

func TestValidateArchiveBackend(t *testing.T) {
	base := Config{
		Server:    ServerConfig{Port: 8080},
		Source:    SourceConfig{CategoryURLs: []string{"https://example.com/c/x"}},
		Scrape:    ScrapeConfig{MaxScrolls: 50},
		Retry:     RetryConfig{MaxAttempts: 3},
		Embedding: EmbeddingConfig{Dimension: 768},
	}

	cfg := base
	cfg.Archive = ArchiveConfig{Backend: "gcs"}
	require.Error(t, cfg.Validate())

	cfg.Archive = ArchiveConfig{Backend: "gcs", GCSBucket: "catalog-images"}
	require.NoError(t, cfg.Validate())

	cfg.Archive = ArchiveConfig{Backend: "tape"}
	require.Error(t, cfg.Validate())
}

func TestValidatePubSubNeedsProject(t *testing.T) {
	cfg := Config{
		Server:    ServerConfig{Port: 8080},
		Source:    SourceConfig{CategoryURLs: []string{"https://example.com/c/x"}},
		Scrape:    ScrapeConfig{MaxScrolls: 50},
		Retry:     RetryConfig{MaxAttempts: 3},
		Embedding: EmbeddingConfig{Dimension: 768},
		PubSub:    PubSubConfig{Enabled: true},
	}
	require.Error(t, cfg.Validate())

	cfg.PubSub.ProjectID = "catalog-project"
	require.NoError(t, cfg.Validate())
}
