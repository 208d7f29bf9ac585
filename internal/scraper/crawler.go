package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/prospectops/mailscout/internal/metrics"
	"github.com/prospectops/mailscout/internal/storage"
)

// ContactPaths is the fixed set of paths crawled under a resolved domain.
// Order carries no meaning; fetches run concurrently.
var ContactPaths = []string{
	"/",
	"/contact",
	"/about",
	"/team",
	"/staff",
	"/contatti",
	"/chi-siamo",
	"/contacts",
}

// CrawlConfig provides parameters for the contact-page crawler.
type CrawlConfig struct {
	// Concurrency bounds parallel page fetches. Defaults to the path count.
	Concurrency int
	// Backend, if set, receives every fetch result for auditing.
	Backend storage.Backend
	// RespectRobots gates each fetch on the site's robots.txt.
	RespectRobots bool
	// UserAgent is the agent name used for robots.txt matching.
	UserAgent string
	// DiscoverSitemap mines sitemap.xml for additional contact-like pages.
	DiscoverSitemap bool
	// MaxSitemapPages caps how many extra pages the sitemap may add.
	MaxSitemapPages int
}

// Crawler fetches the contact-page set of a single domain concurrently.
// Partial failure is the normal case: a page that errors or is blocked simply
// contributes no content.
type Crawler struct {
	cfg     CrawlConfig
	fetcher *Fetcher
	logger  *slog.Logger
	auditor *RobotsAuditor
	sitemap *SitemapDiscoverer
}

// NewCrawler creates a contact-page crawler.
func NewCrawler(cfg CrawlConfig, fetcher *Fetcher, logger *slog.Logger) *Crawler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = len(ContactPaths)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "*"
	}
	if cfg.MaxSitemapPages <= 0 {
		cfg.MaxSitemapPages = 5
	}

	var auditor *RobotsAuditor
	if cfg.RespectRobots {
		auditor = NewRobotsAuditor(fetcher, logger)
	}
	var sm *SitemapDiscoverer
	if cfg.DiscoverSitemap {
		sm = NewSitemapDiscoverer(fetcher, logger)
	}

	return &Crawler{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger,
		auditor: auditor,
		sitemap: sm,
	}
}

// BaseURL normalizes a domain into the https base used for crawling. Domains
// already carrying a scheme are kept as-is.
func BaseURL(domain string) string {
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return strings.TrimRight(domain, "/")
	}
	return "https://" + strings.TrimRight(domain, "/")
}

// CrawlContactPages fetches the fixed path set (plus any sitemap-discovered
// contact pages) under the given domain. It never fails as a whole; pages
// that error are returned with their Error field set.
func (c *Crawler) CrawlContactPages(ctx context.Context, domain, lookup string) []*storage.FetchResult {
	base := BaseURL(domain)

	urls := make([]string, 0, len(ContactPaths)+c.cfg.MaxSitemapPages)
	for _, p := range ContactPaths {
		urls = append(urls, base+p)
	}
	if c.sitemap != nil {
		urls = append(urls, c.discoverExtraPages(ctx, base, urls)...)
	}

	var (
		mu      sync.Mutex
		results []*storage.FetchResult
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for _, u := range urls {
		g.Go(func() error {
			if c.auditor != nil {
				allowed, err := c.auditor.IsAllowed(gCtx, u, c.cfg.UserAgent)
				if err != nil {
					c.logger.Warn("robots.txt check failed, proceeding", "url", u, "err", err)
				} else if !allowed {
					c.logger.Debug("url disallowed by robots.txt", "url", u)
					return nil
				}
			}

			res, err := c.fetcher.Fetch(gCtx, u, lookup)
			if err != nil {
				c.logger.Error("fetch error", "url", u, "err", err)
				return nil
			}

			if c.cfg.Backend != nil {
				if err := c.cfg.Backend.Save(gCtx, res); err != nil {
					c.logger.Error("failed to save fetch result", "url", u, "err", err)
				}
			}

			host := ""
			if parsed, perr := url.Parse(u); perr == nil {
				host = parsed.Hostname()
			}
			metrics.RecordFetch(host, res)

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	// Stable output order for callers and tests; fetches themselves were unordered.
	sort.Slice(results, func(i, j int) bool { return results[i].URL < results[j].URL })
	return results
}

func (c *Crawler) discoverExtraPages(ctx context.Context, base string, known []string) []string {
	seen := make(map[string]struct{}, len(known))
	for _, u := range known {
		seen[u] = struct{}{}
	}

	discovered, err := c.sitemap.ContactPages(ctx, base, c.cfg.MaxSitemapPages)
	if err != nil {
		c.logger.Debug("sitemap discovery failed", "base", base, "err", err)
		return nil
	}

	var extra []string
	for _, u := range discovered {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		extra = append(extra, u)
	}
	return extra
}
