package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/prospectops/mailscout/internal/storage"
)

var _ storage.Backend = (*jsonBackend)(nil)

// jsonBackend appends fetch audit records as NDJSON, one result per line.
type jsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// New creates an NDJSON-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open ndjson audit file: %w", err)
	}
	return &jsonBackend{file: f}, nil
}

func (b *jsonBackend) Save(ctx context.Context, result *storage.FetchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode fetch result: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append fetch result: %w", err)
	}
	return nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.FetchResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek ndjson audit file: %w", err)
	}
	defer func() {
		// Restore the pointer to the end for subsequent appends.
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	scanner := bufio.NewScanner(b.file)

	// A real DB handles ordering and offset/limit in the engine. For NDJSON
	// we read everything, filter in memory, then reverse and slice.
	var allFiltered []*storage.FetchResult

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var r storage.FetchResult
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("decode fetch result: %w", err)
		}

		if filter.Lookup != "" && r.Lookup != filter.Lookup {
			continue
		}
		if filter.URL != "" && r.URL != filter.URL {
			continue
		}
		if filter.Blocked != nil && r.Blocked != *filter.Blocked {
			continue
		}
		if filter.Since != nil && r.CreatedAt.Before(*filter.Since) {
			continue
		}

		allFiltered = append(allFiltered, &r)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan ndjson audit file: %w", err)
	}

	// Order by created_at DESC (reverse the slice).
	for i, j := 0, len(allFiltered)-1; i < j; i, j = i+1, j-1 {
		allFiltered[i], allFiltered[j] = allFiltered[j], allFiltered[i]
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(allFiltered) {
			return []*storage.FetchResult{}, nil
		}
		allFiltered = allFiltered[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(allFiltered) {
		allFiltered = allFiltered[:filter.Limit]
	}

	return allFiltered, nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
