package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsAuditor fetches and caches robots.txt per host and answers whether a
// URL may be crawled. Lookup failures fail open: a site whose robots.txt is
// unreachable is treated as allowing the crawl.
type RobotsAuditor struct {
	fetcher *Fetcher
	logger  *slog.Logger
	mu      sync.RWMutex
	cache   map[string]*robotstxt.RobotsData
}

// NewRobotsAuditor creates a new auditor.
func NewRobotsAuditor(fetcher *Fetcher, logger *slog.Logger) *RobotsAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsAuditor{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed reports whether userAgent may fetch targetURL per the host's
// robots.txt.
func (r *RobotsAuditor) IsAllowed(ctx context.Context, targetURL, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}

	host := u.Scheme + "://" + u.Host

	data, err := r.getOrFetch(ctx, host)
	if err != nil {
		r.logger.Debug("robots.txt fetch failed, defaulting to allow", "host", host, "err", err)
		return true, nil
	}
	if data == nil {
		return true, nil
	}

	group := data.FindGroup(userAgent)
	if group == nil {
		return true, nil
	}
	return group.Test(u.Path), nil
}

func (r *RobotsAuditor) getOrFetch(ctx context.Context, host string) (*robotstxt.RobotsData, error) {
	r.mu.RLock()
	data, ok := r.cache[host]
	r.mu.RUnlock()
	if ok {
		return data, nil
	}

	res, err := r.fetcher.Fetch(ctx, host+"/robots.txt", "")
	if err != nil {
		return nil, err
	}
	if res.Error != "" {
		return nil, fmt.Errorf("fetch robots.txt: %s", res.Error)
	}

	// Missing robots.txt means everything is allowed; cache the nil.
	if res.StatusCode == 404 {
		r.mu.Lock()
		r.cache[host] = nil
		r.mu.Unlock()
		return nil, nil
	}
	if res.StatusCode != 200 {
		return nil, fmt.Errorf("robots.txt status %d", res.StatusCode)
	}

	data, err = robotstxt.FromBytes(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.mu.Lock()
	r.cache[host] = data
	r.mu.Unlock()
	return data, nil
}
