// Package sqlite stores discovery records in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FranksOps/ferret/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS discoveries (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	domain TEXT NOT NULL,
	url TEXT NOT NULL,
	kind TEXT NOT NULL,
	source TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_discoveries_run ON discoveries (run_id);
CREATE INDEX IF NOT EXISTS idx_discoveries_domain_kind ON discoveries (domain, kind);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", dsn, err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: applying schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, rec *storage.DiscoveryRecord) error {
	query := `
	INSERT INTO discoveries (id, run_id, domain, url, kind, source, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
		rec.ID,
		rec.RunID,
		rec.Domain,
		rec.URL,
		rec.Kind,
		rec.Source,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting record: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.DiscoveryRecord, error) {
	query := `SELECT id, run_id, domain, url, kind, source, created_at FROM discoveries WHERE 1=1`
	args := []any{}

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Domain != "" {
		query += ` AND domain = ?`
		args = append(args, filter.Domain)
	}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, filter.Kind)
	}

	query += ` ORDER BY created_at DESC, id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying records: %w", err)
	}
	defer rows.Close()

	var results []*storage.DiscoveryRecord
	for rows.Next() {
		var r storage.DiscoveryRecord
		err := rows.Scan(&r.ID, &r.RunID, &r.Domain, &r.URL, &r.Kind, &r.Source, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning row: %w", err)
		}
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating rows: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
