// Package proxy manages a rotating pool of outbound proxies. Search-engine
// scraping from a single IP gets challenged quickly; rotating proxies with
// failure tracking keeps domain resolution usable at volume.
package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// endpoint tracks health for a single proxy.
type endpoint struct {
	url           *url.URL
	failures      int
	disabledUntil time.Time
}

// Pool is a round-robin proxy pool with per-proxy failure cooldown.
type Pool struct {
	mu          sync.Mutex
	endpoints   []*endpoint
	next        int
	maxFailures int
	cooldown    time.Duration
}

// Config defines settings for the Pool.
type Config struct {
	// MaxFailures before a proxy is benched.
	MaxFailures int
	// Cooldown is how long a benched proxy stays out of rotation.
	Cooldown time.Duration
}

// NewPool creates a proxy pool. Zero config values get reasonable defaults.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
	}
}

// Add registers a proxy URL with the pool.
func (p *Pool) Add(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse proxy url %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("proxy url %q missing scheme or host", raw)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endpoints = append(p.endpoints, &endpoint{url: u})
	return nil
}

// LoadFile reads proxies from a file, one URL per line. Empty lines and lines
// starting with '#' are skipped.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open proxy file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := p.Add(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Next returns the next healthy proxy in rotation, or nil if none is
// available right now.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.endpoints)
	if n == 0 {
		return nil
	}
	now := time.Now()
	for i := 0; i < n; i++ {
		e := p.endpoints[p.next%n]
		p.next++
		if now.After(e.disabledUntil) {
			return e.url
		}
	}
	return nil
}

// MarkSuccess resets the failure count for the given proxy.
func (p *Pool) MarkSuccess(u *url.URL) error {
	e, err := p.find(u)
	if err != nil {
		return err
	}
	p.mu.Lock()
	e.failures = 0
	p.mu.Unlock()
	return nil
}

// MarkFailure records a failure; hitting MaxFailures benches the proxy for
// the cooldown period.
func (p *Pool) MarkFailure(u *url.URL) error {
	e, err := p.find(u)
	if err != nil {
		return err
	}
	p.mu.Lock()
	e.failures++
	if e.failures >= p.maxFailures {
		e.disabledUntil = time.Now().Add(p.cooldown)
		e.failures = 0
	}
	p.mu.Unlock()
	return nil
}

// Len reports how many proxies are registered, healthy or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

func (p *Pool) find(u *url.URL) (*endpoint, error) {
	if u == nil {
		return nil, errors.New("nil proxy url")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.endpoints {
		if e.url.String() == u.String() {
			return e, nil
		}
	}
	return nil, fmt.Errorf("proxy %q not in pool", u)
}
