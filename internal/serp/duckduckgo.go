package serp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/prospectops/mailscout/pkg/httpclient"
	"github.com/prospectops/mailscout/pkg/useragent"
)

const defaultEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the HTML (no-JS) result page. It needs no API key and
// tolerates POSTed form queries, which is why the pipeline defaults to it.
type DuckDuckGo struct {
	client   *httpclient.Client
	uas      *useragent.Pool
	endpoint string
	logger   *slog.Logger
}

// DuckDuckGoConfig configures the provider. Zero values get defaults.
type DuckDuckGoConfig struct {
	Client   *httpclient.Client
	UAPool   *useragent.Pool
	Endpoint string // override for tests
	Logger   *slog.Logger
}

// NewDuckDuckGo creates a DuckDuckGo search provider.
func NewDuckDuckGo(cfg DuckDuckGoConfig) (*DuckDuckGo, error) {
	if cfg.Client == nil {
		c, err := httpclient.New(httpclient.Config{Timeout: 8 * time.Second, MaxRedirects: 3})
		if err != nil {
			return nil, fmt.Errorf("default client: %w", err)
		}
		cfg.Client = c
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &DuckDuckGo{
		client:   cfg.Client,
		uas:      cfg.UAPool,
		endpoint: cfg.Endpoint,
		logger:   cfg.Logger,
	}, nil
}

var _ Provider = (*DuckDuckGo)(nil)

// Search POSTs the query and parses organic result links out of the response.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit < 0 {
		return nil, fmt.Errorf("limit cannot be negative: %d", limit)
	}

	form := url.Values{"q": {query}}
	req, err := http.NewRequest(http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", d.uas.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := d.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	var results []Result
	doc.Find("a.result__a").EachWithBreak(func(i int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		target := resolveResultLink(href)
		if target == "" {
			return true
		}
		results = append(results, Result{URL: target, Title: strings.TrimSpace(s.Text())})
		return limit == 0 || len(results) < limit
	})

	d.logger.Debug("search completed", "query", query, "results", len(results))
	return results, nil
}

// resolveResultLink unwraps DuckDuckGo's redirect links (the uddg parameter)
// and drops anything that isn't a plain http(s) target.
func resolveResultLink(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.Contains(u.Host, "duckduckgo.com") {
		if uddg := u.Query().Get("uddg"); uddg != "" {
			if inner, err := url.Parse(uddg); err == nil && (inner.Scheme == "http" || inner.Scheme == "https") {
				return inner.String()
			}
		}
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
