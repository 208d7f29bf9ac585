// Package sqlite provides a SQLite-backed audit sink for fetch results.
// Use dsn ":memory:" for a process-local sink that leaves nothing on disk.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prospectops/mailscout/internal/storage"
	_ "modernc.org/sqlite"
)

var _ storage.Backend = (*backend)(nil)

type backend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS fetch_results (
	id TEXT PRIMARY KEY,
	lookup TEXT NOT NULL,
	url TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	headers TEXT NOT NULL,
	body BLOB,
	duration_ms INTEGER NOT NULL,
	blocked BOOLEAN NOT NULL,
	blocked_by TEXT,
	created_at DATETIME NOT NULL,
	error TEXT
);
`

// New opens (creating if necessary) a SQLite database at dsn and returns it
// as a storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &backend{db: db}, nil
}

func (b *backend) Save(ctx context.Context, result *storage.FetchResult) error {
	headersJSON, err := json.Marshal(result.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}

	const query = `
	INSERT INTO fetch_results (
		id, lookup, url, status_code, headers, body, duration_ms, blocked, blocked_by, created_at, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		result.ID,
		result.Lookup,
		result.URL,
		result.StatusCode,
		string(headersJSON),
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

	if filter.Lookup != "" {
		query += ` AND lookup = ?`
		args = append(args, filter.Lookup)
	}
	if filter.URL != "" {
		query += ` AND url = ?`
		args = append(args, filter.URL)
	}
	if filter.Blocked != nil {
		query += ` AND blocked = ?`
		args = append(args, *filter.Blocked)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite rejects OFFSET without LIMIT; -1 means unlimited.
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fetch results: %w", err)
	}
	defer rows.Close()

	var results []*storage.FetchResult
	for rows.Next() {
		var r storage.FetchResult
		var headersJSON string
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.Lookup, &r.URL, &r.StatusCode, &headersJSON, &r.Body,
			&durationMs, &r.Blocked, &r.BlockedBy, &r.CreatedAt, &r.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fetch result: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(headersJSON), &r.Headers); err != nil {
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
	return b.db.Close()
}
