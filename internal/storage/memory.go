package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Backend. It is the default audit sink and is also
// what tests use to observe crawler behavior.
type Memory struct {
	mu      sync.Mutex
	results []*FetchResult
}

var _ Backend = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Save(ctx context.Context, result *FetchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
	return nil
}

func (m *Memory) Query(ctx context.Context, filter Filter) ([]*FetchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*FetchResult
	skipped := 0
	for _, r := range m.results {
		if !matches(r, filter) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, r)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

func matches(r *FetchResult, f Filter) bool {
	if f.Lookup != "" && r.Lookup != f.Lookup {
		return false
	}
	if f.URL != "" && r.URL != f.URL {
		return false
	}
	if f.Blocked != nil && r.Blocked != *f.Blocked {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}
