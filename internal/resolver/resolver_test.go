package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prospectops/mailscout/internal/serp"
)

type fakeSearch struct {
	mu      sync.Mutex
	calls   []string
	results map[string][]serp.Result
	err     error
}

func (f *fakeSearch) Search(ctx context.Context, query string, limit int) ([]serp.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func (f *fakeSearch) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeProber struct {
	mu     sync.Mutex
	probed []string
	status map[string]int
}

func (f *fakeProber) Probe(ctx context.Context, targetURL string) (int, error) {
	f.mu.Lock()
	f.probed = append(f.probed, targetURL)
	f.mu.Unlock()
	if status, ok := f.status[targetURL]; ok {
		return status, nil
	}
	return 0, errors.New("connect: connection refused")
}

func TestResolveFromSearch(t *testing.T) {
	search := &fakeSearch{results: map[string][]serp.Result{
		"Acme Corp Italy official website": {
			{URL: "https://en.wikipedia.org/wiki/Acme", Title: "Acme - Wikipedia"},
			{URL: "https://www.acmecorp.com/", Title: "Acme Corp"},
		},
	}}

	r := New(Config{Search: search})
	got := r.Resolve(context.Background(), "Acme Corp", "Italy")
	if got != "acmecorp.com" {
		t.Errorf("Resolve = %q, want acmecorp.com", got)
	}
}

func TestResolveRetriesWithoutCountry(t *testing.T) {
	search := &fakeSearch{results: map[string][]serp.Result{
		"Acme Corp official website": {
			{URL: "https://acmecorp.it/", Title: "Acme Corp"},
		},
	}}

	r := New(Config{Search: search})
	got := r.Resolve(context.Background(), "Acme Corp", "Italy")
	if got != "acmecorp.it" {
		t.Errorf("Resolve = %q, want acmecorp.it", got)
	}
	if n := search.callCount(); n != 2 {
		t.Errorf("expected 2 search calls, got %d", n)
	}
}

func TestResolveRejectsWeakCandidates(t *testing.T) {
	// Every result is unrelated to the company name, so both search passes
	// fail the acceptance threshold and the slug fallback fires.
	search := &fakeSearch{results: map[string][]serp.Result{
		"Acme Corp official website": {
			{URL: "https://totally-unrelated-thing.org/"},
		},
	}}

	r := New(Config{Search: search})
	if got := r.Resolve(context.Background(), "Acme Corp", ""); got != "acmecorp.com" {
		t.Errorf("Resolve = %q, want slug fallback acmecorp.com", got)
	}
}

func TestResolveProbesSlugsInFixedOrder(t *testing.T) {
	prober := &fakeProber{status: map[string]int{
		"https://acmecorp.it": 200,
	}}

	r := New(Config{
		Search: &fakeSearch{err: errors.New("search engine unreachable")},
		Prober: prober,
	})
	got := r.Resolve(context.Background(), "Acme Corp", "Italy")
	if got != "acmecorp.it" {
		t.Errorf("Resolve = %q, want acmecorp.it", got)
	}
	want := []string{"https://acmecorp.com", "https://acmecorp.it"}
	if len(prober.probed) != len(want) {
		t.Fatalf("probed %v, want %v", prober.probed, want)
	}
	for i := range want {
		if prober.probed[i] != want[i] {
			t.Errorf("probe %d = %q, want %q", i, prober.probed[i], want[i])
		}
	}
}

func TestResolveServerErrorDoesNotCount(t *testing.T) {
	prober := &fakeProber{status: map[string]int{
		"https://acmecorp.com": 503,
		"https://acmecorp.fr":  404,
	}}

	r := New(Config{Prober: prober})
	// 503 is a failing server, 404 still proves something answers.
	if got := r.Resolve(context.Background(), "Acme Corp", ""); got != "acmecorp.fr" {
		t.Errorf("Resolve = %q, want acmecorp.fr", got)
	}
}

func TestResolveFallbackWhenNothingReachable(t *testing.T) {
	r := New(Config{Prober: &fakeProber{}})
	if got := r.Resolve(context.Background(), "Acme Corp", "Italy"); got != "acmecorp.com" {
		t.Errorf("Resolve = %q, want unconditional acmecorp.com", got)
	}
}

func TestResolveMemoizes(t *testing.T) {
	search := &fakeSearch{results: map[string][]serp.Result{
		"Acme Corp official website": {
			{URL: "https://acmecorp.com/"},
		},
	}}

	r := New(Config{Search: search})
	first := r.Resolve(context.Background(), "Acme Corp", "")
	second := r.Resolve(context.Background(), "Acme Corp", "")
	if first != second {
		t.Errorf("memoized result changed: %q then %q", first, second)
	}
	if n := search.callCount(); n != 1 {
		t.Errorf("expected a single search call, got %d", n)
	}

	// A different country is a different key.
	r.Resolve(context.Background(), "Acme Corp", "Italy")
	if n := search.callCount(); n < 2 {
		t.Error("distinct country must not share the memo entry")
	}
}

func TestDomainCacheEviction(t *testing.T) {
	c := newDomainCache(2)
	c.put("a", "a.com")
	c.put("b", "b.com")
	if _, ok := c.get("a"); !ok {
		t.Fatal("a should still be cached")
	}

	// b is now least recently used and must be evicted.
	c.put("c", "c.com")
	if _, ok := c.get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.get("a"); !ok {
		t.Error("a should have survived")
	}
	if c.len() != 2 {
		t.Errorf("len = %d, want 2", c.len())
	}
}

func TestHostOf(t *testing.T) {
	cases := map[string]string{
		"https://www.acmecorp.com/about": "acmecorp.com",
		"http://ACME.example":            "acme.example",
		"://bad":                         "",
	}
	for in, want := range cases {
		if got := hostOf(in); got != want {
			t.Errorf("hostOf(%q) = %q, want %q", in, got, want)
		}
	}
}
