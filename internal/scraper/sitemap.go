package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	sitemap "github.com/oxffaa/gopher-parse-sitemap"
)

// contactKeywords mark sitemap URLs worth crawling beyond the fixed path set.
var contactKeywords = []string{"contact", "about", "team", "staff", "contatti", "chi-siamo", "impressum"}

// SitemapDiscoverer mines a site's sitemap.xml for contact-like pages the
// fixed path set would miss (localized slugs, CMS-generated paths).
type SitemapDiscoverer struct {
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewSitemapDiscoverer initializes a SitemapDiscoverer.
func NewSitemapDiscoverer(fetcher *Fetcher, logger *slog.Logger) *SitemapDiscoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SitemapDiscoverer{fetcher: fetcher, logger: logger}
}

// ContactPages fetches base+"/sitemap.xml" and returns up to max URLs whose
// path looks contact-related.
func (s *SitemapDiscoverer) ContactPages(ctx context.Context, base string, max int) ([]string, error) {
	urls, err := s.fetchSitemap(ctx, base+"/sitemap.xml", 0)
	if err != nil {
		return nil, err
	}

	var picked []string
	for _, u := range urls {
		if !looksContactRelated(u) {
			continue
		}
		picked = append(picked, u)
		if max > 0 && len(picked) >= max {
			break
		}
	}
	return picked, nil
}

// fetchSitemap parses a sitemap or sitemap index, following nested sitemaps
// one level deep.
func (s *SitemapDiscoverer) fetchSitemap(ctx context.Context, sitemapURL string, depth int) ([]string, error) {
	res, err := s.fetcher.Fetch(ctx, sitemapURL, "")
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("fetch sitemap: %s", res.Error)
	}
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("sitemap status %d", res.StatusCode)
	}

	var urls []string
	err = sitemap.Parse(bytes.NewReader(res.Body), func(e sitemap.Entry) error {
		urls = append(urls, e.GetLocation())
		return nil
	})

	if err != nil || len(urls) == 0 {
		// Possibly a sitemap index.
		var nested []string
		indexErr := sitemap.ParseIndex(bytes.NewReader(res.Body), func(e sitemap.IndexEntry) error {
			nested = append(nested, e.GetLocation())
			return nil
		})
		if indexErr != nil || len(nested) == 0 {
			if err != nil {
				return nil, fmt.Errorf("parse sitemap: %w", err)
			}
			return nil, fmt.Errorf("empty sitemap at %s", sitemapURL)
		}
		if depth >= 1 {
			return nil, nil
		}
		for _, n := range nested {
			nestedURLs, nerr := s.fetchSitemap(ctx, n, depth+1)
			if nerr != nil {
				s.logger.Debug("nested sitemap failed", "url", n, "err", nerr)
				continue
			}
			urls = append(urls, nestedURLs...)
		}
	}

	return urls, nil
}

func looksContactRelated(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, kw := range contactKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
