// Package finder sequences the discovery pipeline: resolve a domain from a
// company name, crawl its likely contact pages, extract and validate
// addresses, guess generic ones when the crawl comes up empty, and optionally
// narrow the result to addresses whose domain can receive mail.
package finder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/prospectops/mailscout/internal/extractor"
	"github.com/prospectops/mailscout/internal/metrics"
	"github.com/prospectops/mailscout/internal/storage"
)

// ErrMissingCompany is returned when a request carries no company name. It is
// a caller mistake, not a pipeline failure, so it surfaces as an error rather
// than a failed Result.
var ErrMissingCompany = errors.New("company name is required")

// DomainResolver turns a company name into a domain.
type DomainResolver interface {
	Resolve(ctx context.Context, company, country string) string
}

// Crawler fetches the contact-page set of a domain.
type Crawler interface {
	CrawlContactPages(ctx context.Context, domain, lookup string) []*storage.FetchResult
}

// Guesser proposes verified generic addresses for a domain.
type Guesser interface {
	Guess(ctx context.Context, domain string) []string
}

// MXChecker reports whether an address's domain can receive mail at all.
type MXChecker interface {
	HasMXForAddress(ctx context.Context, email string) bool
}

// Request is one lookup.
type Request struct {
	Company string
	Country string
	// Verify narrows crawled addresses to those whose domain has MX records.
	// Guessed addresses are already verified over SMTP and skip this filter.
	Verify bool
}

// Result is the outcome of one lookup. Error is set instead of being
// returned: pipeline failures degrade to an empty result, they do not escape.
type Result struct {
	Company string   `json:"company"`
	Domain  string   `json:"domain"`
	Emails  []string `json:"emails"`
	// AllEmails carries the unfiltered set when Verify narrowed Emails.
	AllEmails []string `json:"all_emails,omitempty"`
	// Guessed marks addresses synthesized rather than found on-page.
	Guessed bool   `json:"guessed,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Config wires a Finder. Resolver and Crawler are required; Guesser and
// Verifier are optional stages.
type Config struct {
	Resolver  DomainResolver
	Crawler   Crawler
	Guesser   Guesser
	Verifier  MXChecker
	Validator *extractor.Validator
	Logger    *slog.Logger
}

// Finder runs the end-to-end pipeline. Safe for concurrent use.
type Finder struct {
	cfg Config
}

// New creates a Finder.
func New(cfg Config) (*Finder, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("finder: resolver is required")
	}
	if cfg.Crawler == nil {
		return nil, errors.New("finder: crawler is required")
	}
	if cfg.Validator == nil {
		cfg.Validator = extractor.NewValidator()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Finder{cfg: cfg}, nil
}

// FindCompanyEmails runs one lookup. The only error it returns is
// ErrMissingCompany; anything that goes wrong inside the pipeline is caught
// and reported through the Result.
func (f *Finder) FindCompanyEmails(ctx context.Context, req Request) (res Result, err error) {
	if req.Company == "" {
		return Result{}, ErrMissingCompany
	}

	res = Result{Company: req.Company}

	defer func() {
		if r := recover(); r != nil {
			f.cfg.Logger.Error("pipeline panic", "company", req.Company, "panic", r)
			res = Result{
				Company: req.Company,
				Error:   fmt.Sprintf("internal error: %v", r),
			}
			metrics.LookupsTotal.WithLabelValues("error").Inc()
		}
	}()

	lookup := uuid.New().String()
	log := f.cfg.Logger.With("lookup", lookup, "company", req.Company)

	res.Domain = f.cfg.Resolver.Resolve(ctx, req.Company, req.Country)
	log.Info("domain resolved", "domain", res.Domain)

	results := f.cfg.Crawler.CrawlContactPages(ctx, res.Domain, lookup)
	emails := extractor.ExtractFromResults(results, f.cfg.Validator)
	emails = extractor.FilterByAffinity(emails, res.Domain)
	log.Info("crawl finished", "pages", len(results), "emails", len(emails))

	if len(emails) == 0 && f.cfg.Guesser != nil {
		emails = f.cfg.Guesser.Guess(ctx, res.Domain)
		res.Guessed = len(emails) > 0
		log.Info("guessing finished", "emails", len(emails))
	}

	if req.Verify && !res.Guessed && len(emails) > 0 && f.cfg.Verifier != nil {
		verified := make([]string, 0, len(emails))
		for _, addr := range emails {
			if f.cfg.Verifier.HasMXForAddress(ctx, addr) {
				verified = append(verified, addr)
			}
		}
		res.AllEmails = emails
		emails = verified
		log.Info("mx filter applied", "kept", len(verified), "of", len(res.AllEmails))
	}

	if emails == nil {
		emails = []string{}
	}
	res.Emails = emails
	res.Success = true

	switch {
	case res.Guessed:
		metrics.LookupsTotal.WithLabelValues("guessed").Inc()
		metrics.EmailsFound.WithLabelValues("guessed").Add(float64(len(emails)))
	case len(emails) > 0:
		metrics.LookupsTotal.WithLabelValues("found").Inc()
		metrics.EmailsFound.WithLabelValues("extracted").Add(float64(len(emails)))
	default:
		metrics.LookupsTotal.WithLabelValues("empty").Inc()
	}
	return res, nil
}
