package serp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

const resultsPage = `<html><body>
<div class="results">
  <a class="result__a" href="https://www.acmecorp.com/">Acme Corp - Official Site</a>
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fother.example%2Fpage">Other</a>
  <a class="result__a" href="javascript:void(0)">Junk</a>
  <a class="result__a" href="https://third.example/about">Third</a>
</div>
</body></html>`

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*DuckDuckGo, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	p, err := NewDuckDuckGo(DuckDuckGoConfig{Endpoint: ts.URL})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p, ts
}

func TestDuckDuckGo_ParsesResultLinks(t *testing.T) {
	var gotQuery string
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		_ = r.ParseForm()
		gotQuery = r.PostForm.Get("q")
		_, _ = w.Write([]byte(resultsPage))
	})

	results, err := p.Search(context.Background(), "Acme Corp Italy official website", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if gotQuery != "Acme Corp Italy official website" {
		t.Errorf("query not forwarded, got %q", gotQuery)
	}

	want := []string{
		"https://www.acmecorp.com/",
		"https://other.example/page", // unwrapped from the redirect link
		"https://third.example/about",
	}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d: %v", len(want), len(results), results)
	}
	for i, w := range want {
		if results[i].URL != w {
			t.Errorf("result %d: got %q, want %q", i, results[i].URL, w)
		}
	}
}

func TestDuckDuckGo_Limit(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(resultsPage))
	})

	results, err := p.Search(context.Background(), "acme", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestDuckDuckGo_NonOKStatus(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	if _, err := p.Search(context.Background(), "acme", 0); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestDuckDuckGo_NegativeLimit(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	if _, err := p.Search(context.Background(), "acme", -1); err == nil {
		t.Fatal("expected error for negative limit")
	}
}

func TestResolveResultLink(t *testing.T) {
	cases := map[string]string{
		"https://acme.com/":      "https://acme.com/",
		"ftp://acme.com/":        "",
		"javascript:void(0)":     "",
		"//duckduckgo.com/l/?uddg=" + url.QueryEscape("https://hidden.example/x"): "https://hidden.example/x",
		"//duckduckgo.com/l/?other=1":                                            "",
	}
	for in, want := range cases {
		if got := resolveResultLink(in); got != want {
			t.Errorf("resolveResultLink(%q) = %q, want %q", in, got, want)
		}
	}
}
