package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores each collection as a single jsonb row, overwritten
// wholesale on every save.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the collections table if it does not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS collections (
	name TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`)
	return err
}

func (p *Postgres) Load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	var payload []byte
	err := p.pool.QueryRow(ctx, `
SELECT payload FROM collections WHERE name = $1
`, collection).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}
	return decodeArray(collection, payload)
}

func (p *Postgres) Save(ctx context.Context, collection string, records []json.RawMessage) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO collections (name, payload, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (name) DO UPDATE SET
	payload = EXCLUDED.payload,
	updated_at = NOW()
`, collection, encodeArray(records))
	if err != nil {
		return fmt.Errorf("save %s: %w", collection, err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func DefaultPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnLifetime = time.Hour
	return pgxpool.NewWithConfig(ctx, cfg)
}
