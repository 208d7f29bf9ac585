package jsonbackend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prospectops/mailscout/internal/storage"
)

func TestJSONBackend(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "audit.ndjson")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	res1 := &storage.FetchResult{
		ID:         "j1",
		Lookup:     "acme",
		URL:        "https://acme.com/",
		StatusCode: 200,
		Headers:    map[string][]string{"Content-Type": {"text/html"}},
		Body:       []byte("<html>info@acme.com</html>"),
		Duration:   15 * time.Millisecond,
		CreatedAt:  now.Add(-time.Hour),
	}
	res2 := &storage.FetchResult{
		ID:         "j2",
		Lookup:     "acme",
		URL:        "https://acme.com/team",
		StatusCode: 0,
		CreatedAt:  now,
		Error:      "timeout",
	}

	if err := b.Save(ctx, res1); err != nil {
		t.Fatalf("save result 1: %v", err)
	}
	if err := b.Save(ctx, res2); err != nil {
		t.Fatalf("save result 2: %v", err)
	}

	got, err := b.Query(ctx, storage.Filter{Lookup: "acme"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	// Ordered by created_at descending.
	if got[0].ID != "j2" || got[1].ID != "j1" {
		t.Errorf("expected j2 then j1, got %s then %s", got[0].ID, got[1].ID)
	}
	if string(got[1].Body) != string(res1.Body) {
		t.Errorf("body not preserved: %q", got[1].Body)
	}
	if got[0].Error != "timeout" {
		t.Errorf("error field not preserved: %+v", got[0])
	}

	// One JSON object per line on disk.
	raw, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 ndjson lines, got %d", len(lines))
	}
}

func TestJSONBackendFilters(t *testing.T) {
	tmpDir := t.TempDir()
	b, err := New(filepath.Join(tmpDir, "audit.ndjson"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	_ = b.Save(ctx, &storage.FetchResult{ID: "1", Lookup: "x", URL: "https://x.com/", CreatedAt: now.Add(-2 * time.Hour)})
	_ = b.Save(ctx, &storage.FetchResult{ID: "2", Lookup: "x", URL: "https://x.com/contact", Blocked: true, BlockedBy: "DataDome", CreatedAt: now.Add(-time.Hour)})
	_ = b.Save(ctx, &storage.FetchResult{ID: "3", Lookup: "y", URL: "https://y.com/", CreatedAt: now})

	blocked := true
	got, err := b.Query(ctx, storage.Filter{Blocked: &blocked})
	if err != nil {
		t.Fatalf("query by blocked: %v", err)
	}
	if len(got) != 1 || got[0].BlockedBy != "DataDome" {
		t.Errorf("expected single DataDome-blocked result, got %v", got)
	}

	since := now.Add(-90 * time.Minute)
	got, err = b.Query(ctx, storage.Filter{Since: &since})
	if err != nil {
		t.Fatalf("query by since: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 results since cutoff, got %d", len(got))
	}

	got, err = b.Query(ctx, storage.Filter{Lookup: "y"})
	if err != nil {
		t.Fatalf("query by lookup: %v", err)
	}
	if len(got) != 1 || got[0].ID != "3" {
		t.Errorf("expected [3], got %v", got)
	}
}
