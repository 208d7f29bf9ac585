package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/prospectops/mailscout/internal/bypass"
	"github.com/prospectops/mailscout/internal/fingerprint"
	"github.com/prospectops/mailscout/internal/storage"
	"github.com/prospectops/mailscout/pkg/httpclient"
	"github.com/prospectops/mailscout/pkg/politeness"
	"github.com/prospectops/mailscout/pkg/proxy"
	"github.com/prospectops/mailscout/pkg/useragent"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// maxBodyBytes caps how much of a page we read; contact pages past this size
// are not going to yield anything new.
const maxBodyBytes = 2 << 20

// FetchConfig configures a Fetcher.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	ProxyPool    *proxy.Pool
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
	Delayer      *politeness.Delayer
}

// Fetcher performs single-page fetches. One Fetcher is shared across a lookup
// so the connection pool and cookie jar persist between page fetches.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
}

// NewFetcher initializes a Fetcher with the given configuration.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if string(cfg.Fingerprint) == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}

	// The proxy function reads from the request context so the pool can
	// rotate per request on a single shared transport.
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if val := req.Context().Value(proxyKey); val != nil {
			if u, ok := val.(*url.URL); ok {
				return u, nil
			}
		}
		if req.URL.Hostname() == "127.0.0.1" || req.URL.Hostname() == "localhost" {
			return nil, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Fetcher{config: cfg, client: client}, nil
}

// Fetch executes a GET against targetURL. Transport and HTTP failures are
// absorbed into the result's Error field; the returned error is reserved for
// conditions that should abort the caller (currently none).
func (f *Fetcher) Fetch(ctx context.Context, targetURL, lookup string) (*storage.FetchResult, error) {
	start := time.Now()
	result := &storage.FetchResult{
		ID:        uuid.New().String(),
		Lookup:    lookup,
		URL:       targetURL,
		CreatedAt: start.UTC(),
	}

	if f.config.Delayer != nil {
		if err := f.config.Delayer.Wait(ctx); err != nil {
			result.Error = fmt.Sprintf("canceled before fetch: %v", err)
			result.Duration = time.Since(start)
			return result, nil
		}
	}

	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		activeProxy = f.config.ProxyPool.Next()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("build request: %v", err)
		result.Duration = time.Since(start)
		return result, nil
	}
	if activeProxy != nil {
		req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
	}

	req.Header.Set("User-Agent", f.config.UAPool.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil {
			_ = f.config.ProxyPool.MarkFailure(activeProxy)
		}
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.Duration = time.Since(start)
		return result, nil
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = f.config.ProxyPool.MarkSuccess(activeProxy)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		result.Error = fmt.Sprintf("read body: %v", err)
	}

	result.StatusCode = resp.StatusCode
	result.Headers = resp.Header
	result.Body = body
	result.Duration = time.Since(start)

	bypass.Analyze(result, bypass.DefaultDetectors())

	return result, nil
}

// Probe issues a header-only request to targetURL and reports the response
// status. Any transport error means "not reachable".
func (f *Fetcher) Probe(ctx context.Context, targetURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, targetURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build probe request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UAPool.Next())

	resp, err := f.client.Do(req.Context(), req)
	if err != nil {
		return 0, fmt.Errorf("probe failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	return resp.StatusCode, nil
}
