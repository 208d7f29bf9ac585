// Package postgres provides a Postgres-backed audit sink for fetch results,
// for deployments where several lookup processes share one audit trail.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prospectops/mailscout/internal/storage"
)

var _ storage.Backend = (*backend)(nil)

type backend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS fetch_results (
	id TEXT PRIMARY KEY,
	lookup TEXT NOT NULL,
	url TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	headers JSONB NOT NULL,
	body BYTEA,
	duration_ms BIGINT NOT NULL,
	blocked BOOLEAN NOT NULL,
	blocked_by TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	error TEXT
);
`

// New connects to the database at dsn, ensures the schema exists, and returns
// a storage.Backend over it.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &backend{pool: pool}, nil
}

func (b *backend) Save(ctx context.Context, result *storage.FetchResult) error {
	headersJSON, err := json.Marshal(result.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}

	const query = `
	INSERT INTO fetch_results (
		id, lookup, url, status_code, headers, body, duration_ms, blocked, blocked_by, created_at, error
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = b.pool.Exec(ctx, query,
		result.ID,
		result.Lookup,
		result.URL,
		result.StatusCode,
		headersJSON,
		result.Body,
		result.Duration.Milliseconds(),
		result.Blocked,
		result.BlockedBy,
		result.CreatedAt,
		result.Error,
	)
	if err != nil {
		return fmt.Errorf("insert fetch result: %w", err)
	}
	return nil
}

func (b *backend) Query(ctx context.Context, filter storage.Filter) ([]*storage.FetchResult, error) {
	query := `SELECT id, lookup, url, status_code, headers, body, duration_ms, blocked, blocked_by, created_at, error FROM fetch_results WHERE 1=1`
	args := []any{}
	param := 1

	if filter.Lookup != "" {
		query += fmt.Sprintf(` AND lookup = $%d`, param)
		args = append(args, filter.Lookup)
		param++
	}
	if filter.URL != "" {
		query += fmt.Sprintf(` AND url = $%d`, param)
		args = append(args, filter.URL)
		param++
	}
	if filter.Blocked != nil {
		query += fmt.Sprintf(` AND blocked = $%d`, param)
		args = append(args, *filter.Blocked)
		param++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, param)
		args = append(args, *filter.Since)
		param++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, param)
		args = append(args, filter.Limit)
		param++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, param)
		args = append(args, filter.Offset)
		param++
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fetch results: %w", err)
	}
	defer rows.Close()

	var results []*storage.FetchResult
	for rows.Next() {
		var r storage.FetchResult
		var headersJSON []byte
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.Lookup, &r.URL, &r.StatusCode, &headersJSON, &r.Body,
			&durationMs, &r.Blocked, &r.BlockedBy, &r.CreatedAt, &r.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fetch result: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal(headersJSON, &r.Headers); err != nil {
			return nil, fmt.Errorf("unmarshal headers: %w", err)
		}

		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fetch results: %w", err)
	}

	return results, nil
}

func (b *backend) Close() error {
	b.pool.Close()
	return nil
}
