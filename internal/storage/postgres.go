package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend stores every namespace in the smp_records table. The schema
// is owned by internal/platform/postgres migrations.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend wraps an open pool. The caller keeps ownership of
// migrations; Close closes the pool.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (b *PostgresBackend) Name() string { return "postgres" }

func (b *PostgresBackend) Persister(namespace string) (Persister, error) {
	if !namespacePattern.MatchString(namespace) {
		return nil, fmt.Errorf("invalid namespace %q", namespace)
	}
	return &postgresPersister{pool: b.pool, namespace: namespace}, nil
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}

type postgresPersister struct {
	pool      *pgxpool.Pool
	namespace string
}

func (p *postgresPersister) LoadAll(ctx context.Context) ([]Record, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, payload
		FROM smp_records
		WHERE namespace = $1
		ORDER BY id
	`, p.namespace)
	if err != nil {
		return nil, fmt.Errorf("query %s records: %w", p.namespace, err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var rec Record
		err := row.Scan(&rec.ID, &rec.Data)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s records: %w", p.namespace, err)
	}
	return records, nil
}

func (p *postgresPersister) Put(ctx context.Context, id string, data []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO smp_records (namespace, id, payload, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (namespace, id) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`, p.namespace, id, data)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", p.namespace, id, err)
	}
	return nil
}

func (p *postgresPersister) Delete(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM smp_records WHERE namespace = $1 AND id = $2`, p.namespace, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", p.namespace, id, err)
	}
	return nil
}
