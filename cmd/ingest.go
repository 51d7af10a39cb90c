package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"catalog-ingest/internal/api"
	"catalog-ingest/internal/blob"
	"catalog-ingest/internal/browser"
	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/config"
	"catalog-ingest/internal/crawler"
	"catalog-ingest/internal/embed"
	"catalog-ingest/internal/extract"
	"catalog-ingest/internal/fetch"
	"catalog-ingest/internal/logging"
	"catalog-ingest/internal/pipeline"
	"catalog-ingest/internal/policy/pacing"
	gcppublisher "catalog-ingest/internal/publisher/pubsub"
	"catalog-ingest/internal/record"
	"catalog-ingest/internal/store"
)

var (
	testMode bool
	dryRun   bool
)

// newIngestCmd creates the 'ingest' subcommand, which performs one full
// ingestion run and exits.
func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Runs one ingestion pass over the configured categories",
		Long: `Crawls every configured category page, visits each discovered product,
and upserts the extracted records. The admin HTTP surface (health, metrics,
last run summary) is served for the duration of the run.`,
		RunE: runIngest,
	}
	cmd.Flags().BoolVar(&testMode, "test", false, "cap the run at a handful of products")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "persist to an in-memory store instead of Postgres")
	return cmd
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if testMode {
		cfg.Scrape.TestMode = true
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recordStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer recordStore.Close()

	archive, err := buildArchive(ctx, cfg)
	if err != nil {
		return err
	}

	var publisher catalog.Publisher
	if cfg.PubSub.Enabled {
		p, err := gcppublisher.New(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("init publisher: %w", err)
		}
		defer func() {
			if cerr := p.Close(); cerr != nil {
				logger.Warn("publisher close failed", zap.Error(cerr))
			}
		}()
		publisher = p
	}

	session, err := browser.New(browser.Config{
		UserAgent:    cfg.Scrape.UserAgent,
		ExtraHeaders: map[string]string{"Accept-Language": "en-US,en;q=0.9"},
		NavTimeout:   time.Duration(cfg.Scrape.NavTimeoutSeconds) * time.Second,
	}, logger.Named("browser"))
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("browser close failed", zap.Error(cerr))
		}
	}()

	retrier := catalog.NewRetrierWith(
		cfg.Retry.MaxAttempts,
		time.Duration(cfg.Retry.BackoffInitialMs)*time.Millisecond,
		time.Duration(cfg.Retry.BackoffMaxMs)*time.Millisecond,
	)
	governor := pacing.New(pacing.Config{
		ProductInterval:  cfg.ProductDelay(),
		CategoryInterval: cfg.CategoryDelay(),
	})

	crawlerCfg := crawler.Config{
		ProductLinkSelector: cfg.Scrape.ProductLinkSelector,
		GridSelector:        cfg.Scrape.GridSelector,
		MaxScrolls:          cfg.Scrape.MaxScrolls,
		StableReads:         cfg.Scrape.StableReads,
		SettleDelay:         cfg.SettleDelay(),
	}
	if cfg.Scrape.TestMode {
		crawlerCfg.MaxProducts = cfg.Scrape.TestModeLimit
	}
	categoryCrawler := crawler.New(session, retrier, governor, crawlerCfg, logger.Named("crawler"))
	extractor := extract.New(session, retrier, governor, extract.Config{
		SettleDelay: cfg.SettleDelay(),
	}, logger.Named("extract"))

	// A missing embedding service degrades the run to records without
	// embeddings; it never blocks ingestion.
	handle, err := embed.LoadModel(ctx, embed.ModelConfig{
		Endpoint:  cfg.Embedding.Endpoint,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		logger.Warn("embedding model unavailable, ingesting without embeddings", zap.Error(err))
		handle = nil
	}
	fetcher := fetch.New(fetch.Config{UserAgent: cfg.Scrape.UserAgent})
	embedder := embed.New(handle, fetcher, retrier, archive, logger.Named("embed"))

	builder := record.New(record.Config{Source: cfg.Source.Name, Brand: cfg.Source.Brand})
	orchestrator := pipeline.New(
		categoryCrawler,
		extractor,
		embedder,
		builder,
		recordStore,
		publisher,
		catalog.SystemClock{},
		pipeline.Config{
			Source:        cfg.Source.Name,
			CategoryURLs:  cfg.Source.CategoryURLs,
			TestMode:      cfg.Scrape.TestMode,
			TestModeLimit: cfg.Scrape.TestModeLimit,
		},
		logger.Named("pipeline"),
	)

	storeReady := func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return recordStore.Ping(pingCtx)
	}
	apiServer := api.NewServer(logger.Named("api"), storeReady)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("admin server started", zap.Int("port", cfg.Server.Port))
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("admin server error", zap.Error(serveErr))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("admin server shutdown error", zap.Error(serr))
		}
	}()

	summary, err := orchestrator.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingestion run: %w", err)
	}
	apiServer.RecordRun(summary)
	return nil
}

func buildStore(ctx context.Context, cfg config.Config) (catalog.RecordStore, error) {
	if dryRun {
		return store.NewMemory(), nil
	}
	s, err := store.NewPostgres(ctx, store.PostgresConfig{
		DSN:             cfg.DB.DSN,
		Table:           cfg.DB.Table,
		MaxConns:        int32(cfg.DB.MaxConns),
		MinConns:        int32(cfg.DB.MinConns),
		MaxConnLifetime: time.Duration(cfg.DB.ConnLifetimeMinutes) * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	return s, nil
}

func buildArchive(ctx context.Context, cfg config.Config) (catalog.BlobStore, error) {
	switch cfg.Archive.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return blob.NewMemory(), nil
	case "local":
		l, err := blob.NewLocal(blob.LocalConfig{BaseDir: cfg.Archive.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		return l, nil
	case "gcs":
		g, err := blob.NewGCS(ctx, blob.GCSConfig{Bucket: cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		return g, nil
	default:
		return nil, fmt.Errorf("archive backend %q is not recognized", cfg.Archive.Backend)
	}
}
