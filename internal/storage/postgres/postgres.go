// Package postgres stores discovery records in PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/FranksOps/ferret/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS discoveries (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	domain TEXT NOT NULL,
	url TEXT NOT NULL,
	kind TEXT NOT NULL,
	source TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_discoveries_run ON discoveries (run_id);
CREATE INDEX IF NOT EXISTS idx_discoveries_domain_kind ON discoveries (domain, kind);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connecting: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres: pinging: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: applying schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, rec *storage.DiscoveryRecord) error {
	query := `
	INSERT INTO discoveries (id, run_id, domain, url, kind, source, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := b.pool.Exec(ctx, query,
		rec.ID,
		rec.RunID,
		rec.Domain,
		rec.URL,
		rec.Kind,
		rec.Source,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: inserting record: %w", err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.DiscoveryRecord, error) {
	query := `SELECT id, run_id, domain, url, kind, source, created_at FROM discoveries WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, paramCount)
		args = append(args, filter.RunID)
		paramCount++
	}
	if filter.Domain != "" {
		query += fmt.Sprintf(` AND domain = $%d`, paramCount)
		args = append(args, filter.Domain)
		paramCount++
	}
	if filter.Kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, paramCount)
		args = append(args, filter.Kind)
		paramCount++
	}

	query += ` ORDER BY created_at DESC, id`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
		paramCount++
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: querying records: %w", err)
	}
	defer rows.Close()

	var results []*storage.DiscoveryRecord
	for rows.Next() {
		var r storage.DiscoveryRecord
		err := rows.Scan(&r.ID, &r.RunID, &r.Domain, &r.URL, &r.Kind, &r.Source, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning row: %w", err)
		}
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating rows: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
