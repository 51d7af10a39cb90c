// Package store provides Postgres-backed persistence for product records.
//
// Expected schema:
//
//	CREATE TABLE products (
//	    id          TEXT PRIMARY KEY,
//	    source      TEXT NOT NULL,
//	    product_url TEXT NOT NULL,
//	    affiliate_url TEXT,
//	    image_url   TEXT,
//	    brand       TEXT,
//	    title       TEXT NOT NULL,
//	    description TEXT,
//	    category    TEXT,
//	    gender      TEXT NOT NULL,
//	    price       NUMERIC,
//	    currency    TEXT,
//	    size        TEXT,
//	    second_hand BOOLEAN NOT NULL DEFAULT FALSE,
//	    embedding   VECTOR(768),
//	    metadata    JSONB,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    UNIQUE (source, product_url)
//	);
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"catalog-ingest/internal/catalog"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool for the products table.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Ping(context.Context) error
	Close()
}

// Postgres implements catalog.RecordStore over a pgx pool.
type Postgres struct {
	pool  execCloser
	table string
}

// NewPostgres connects a pool and pings it; an unreachable database here is a
// fatal setup failure for the run.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "products"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool, table: table}, nil
}

// NewPostgresWithPool constructs a store from an existing pool (testing).
func NewPostgresWithPool(pool execCloser, table string) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "products"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Postgres{pool: pool, table: table}, nil
}

// Ping reports whether the database is reachable. The readiness endpoint
// uses it so /readyz reflects lost connections mid-run, not just the
// startup check.
func (s *Postgres) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("record store is not configured")
	}
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Postgres) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Upsert inserts the record or updates every mutable column of the existing
// row with the same id. created_at is deliberately absent from the update
// list so the first-seen timestamp survives re-ingestion; repeated upserts of
// an unchanged record leave the row content-identical.
func (s *Postgres) Upsert(ctx context.Context, rec catalog.ProductRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("record store is not configured")
	}
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}

	metadataJSON, err := marshalMetadata(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id, source, product_url, affiliate_url, image_url, brand, title,
	description, category, gender, price, currency, size, second_hand,
	embedding, metadata
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15::vector,$16
)
ON CONFLICT (id) DO UPDATE SET
	source = EXCLUDED.source,
	product_url = EXCLUDED.product_url,
	affiliate_url = EXCLUDED.affiliate_url,
	image_url = EXCLUDED.image_url,
	brand = EXCLUDED.brand,
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	category = EXCLUDED.category,
	gender = EXCLUDED.gender,
	price = EXCLUDED.price,
	currency = EXCLUDED.currency,
	size = EXCLUDED.size,
	second_hand = EXCLUDED.second_hand,
	embedding = EXCLUDED.embedding,
	metadata = EXCLUDED.metadata,
	updated_at = NOW()`, s.table)

	args := []any{
		rec.ID,
		rec.Source,
		rec.ProductURL,
		rec.AffiliateURL,
		rec.ImageURL,
		rec.Brand,
		rec.Title,
		rec.Description,
		rec.Category,
		string(rec.Gender),
		priceArg(rec),
		rec.Currency,
		rec.Size,
		rec.SecondHand,
		vectorArg(rec.Embedding),
		metadataJSON,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert product %s: %w", rec.ID, err)
	}
	return nil
}

func priceArg(rec catalog.ProductRecord) any {
	if rec.Price == nil {
		return nil
	}
	return rec.Price.String()
}

// vectorArg renders the embedding as a pgvector text literal, or NULL when
// the embedding is absent.
func vectorArg(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return VectorLiteral(embedding)
}

// VectorLiteral formats a vector the way pgvector parses it: "[v1,v2,...]".
func VectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.Grow(len(embedding) * 10)
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	return json.Marshal(metadata)
}
