package storage

import (
	"context"
	"time"
)

// FetchResult is the outcome of fetching one candidate page during a lookup.
// It is consumed immediately by the extractor and, when an audit backend is
// configured, saved for later inspection of what a lookup actually crawled.
type FetchResult struct {
	ID         string
	Lookup     string // company the fetch belongs to, empty for probes
	URL        string
	StatusCode int
	Headers    map[string][]string
	Body       []byte
	Duration   time.Duration
	Blocked    bool   // a bot-protection challenge was served instead of content
	BlockedBy  string // e.g. "Cloudflare", "Akamai", "DataDome"
	CreatedAt  time.Time
	Error      string // non-empty if the fetch failed before an HTTP response
}

// Filter narrows a Query over stored fetch results.
type Filter struct {
	Lookup  string
	URL     string
	Blocked *bool
	Since   *time.Time
	Limit   int
	Offset  int
}

// Backend stores fetch results for auditing. The pipeline itself never reads
// them back; lookup results are not persisted.
type Backend interface {
	Save(ctx context.Context, result *FetchResult) error
	Query(ctx context.Context, filter Filter) ([]*FetchResult, error)
	Close() error
}
