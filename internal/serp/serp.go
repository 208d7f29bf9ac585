package serp

import "context"

// Result is one organic search result.
type Result struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Provider abstracts a search engine that can return result links for a
// query. Implementations may scrape HTML result pages or call official APIs.
// The limit parameter caps the number of results returned.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}
