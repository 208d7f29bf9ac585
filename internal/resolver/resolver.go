// Package resolver turns a company name into a best-guess registered domain.
// Search results are ranked by name similarity; when search yields nothing
// convincing, slugged TLD candidates are probed directly. Resolution never
// fails: the worst case is an unprobed ".com" guess.
package resolver

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/prospectops/mailscout/internal/serp"
	"github.com/prospectops/mailscout/internal/similarity"
)

// Prober issues a lightweight existence check against a URL and reports the
// response status. scraper.Fetcher satisfies this.
type Prober interface {
	Probe(ctx context.Context, targetURL string) (int, error)
}

// defaultProbeTLDs is the fixed order in which slug candidates are tried.
var defaultProbeTLDs = []string{".com", ".it", ".co.uk", ".fr", ".es", ".ch"}

// Config configures a Resolver. Zero values get defaults; Search and Prober
// may be nil, in which case those stages are skipped.
type Config struct {
	// Search supplies ranked candidates. Nil disables the search stage.
	Search serp.Provider
	// Prober checks slug candidates for reachability. Nil disables probing.
	Prober Prober
	// MinScore is the similarity acceptance threshold for search candidates.
	MinScore float64
	// SearchLimit caps how many results are scored per query.
	SearchLimit int
	// ProbeTLDs overrides the slug probe order.
	ProbeTLDs []string
	// CacheSize bounds the resolution memo.
	CacheSize int
	Logger    *slog.Logger
}

// Resolver resolves company names to domains. Safe for concurrent use;
// results are memoized per (company, country) for the process lifetime.
type Resolver struct {
	cfg   Config
	cache *domainCache
}

// Candidate is one scored search result.
type Candidate struct {
	Domain string
	Score  float64
}

// New creates a Resolver.
func New(cfg Config) *Resolver {
	if cfg.MinScore == 0 {
		cfg.MinScore = 0.4
	}
	if cfg.SearchLimit == 0 {
		cfg.SearchLimit = 10
	}
	if len(cfg.ProbeTLDs) == 0 {
		cfg.ProbeTLDs = defaultProbeTLDs
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Resolver{cfg: cfg, cache: newDomainCache(cfg.CacheSize)}
}

// Resolve returns the best-guess domain for company. It always returns a
// non-empty string; repeated calls with the same (company, country) return
// the memoized answer without touching the network.
func (r *Resolver) Resolve(ctx context.Context, company, country string) string {
	key := cacheKey(company, country)
	if domain, ok := r.cache.get(key); ok {
		return domain
	}

	domain := r.resolve(ctx, company, country)
	r.cache.put(key, domain)
	return domain
}

func (r *Resolver) resolve(ctx context.Context, company, country string) string {
	if domain, ok := r.fromSearch(ctx, company, country); ok {
		return domain
	}
	if country != "" {
		if domain, ok := r.fromSearch(ctx, company, ""); ok {
			return domain
		}
	}

	slug := similarity.Slug(company)
	for _, tld := range r.cfg.ProbeTLDs {
		candidate := slug + tld
		if r.probeExists(ctx, candidate) {
			r.cfg.Logger.Debug("slug probe hit", "company", company, "domain", candidate)
			return candidate
		}
	}
	return slug + ".com"
}

// fromSearch queries the search provider and returns the best-scoring
// candidate domain if it clears the acceptance threshold. Provider errors
// are treated as empty results.
func (r *Resolver) fromSearch(ctx context.Context, company, country string) (string, bool) {
	if r.cfg.Search == nil {
		return "", false
	}

	terms := []string{company}
	if country != "" {
		terms = append(terms, country)
	}
	terms = append(terms, "official website")
	query := strings.Join(terms, " ")
	results, err := r.cfg.Search.Search(ctx, query, r.cfg.SearchLimit)
	if err != nil {
		r.cfg.Logger.Debug("search failed", "query", query, "err", err)
		return "", false
	}

	best := Candidate{}
	for _, res := range results {
		domain := hostOf(res.URL)
		if domain == "" {
			continue
		}
		if score := similarity.Score(company, domain); score > best.Score {
			best = Candidate{Domain: domain, Score: score}
		}
	}
	if best.Domain == "" || best.Score <= r.cfg.MinScore {
		return "", false
	}
	r.cfg.Logger.Debug("search hit", "company", company, "domain", best.Domain, "score", best.Score)
	return best.Domain, true
}

func (r *Resolver) probeExists(ctx context.Context, domain string) bool {
	if r.cfg.Prober == nil {
		return false
	}
	status, err := r.cfg.Prober.Probe(ctx, "https://"+domain)
	return err == nil && status < 500
}

// hostOf extracts the registered host from a result URL, stripping any
// leading "www." label.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
