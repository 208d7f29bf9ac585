// Package guesser synthesizes generic contact addresses for a domain when
// crawling found none, and keeps only the ones SMTP probing confirms.
package guesser

import (
	"context"
	"log/slog"

	"github.com/prospectops/mailscout/internal/extractor"
	"github.com/prospectops/mailscout/internal/verifier"
)

// DefaultLocals are the generic local parts tried against a resolved domain.
var DefaultLocals = []string{"info", "contact", "hello", "office", "sales"}

// Verifier is the subset of verification the guesser needs.
type Verifier interface {
	HasMX(ctx context.Context, domain string) bool
	Probe(ctx context.Context, email string) verifier.Outcome
}

// Config configures a Guesser.
type Config struct {
	// Locals overrides the generic local parts tried.
	Locals []string
	// Validator filters synthesized candidates. Nil gets a default.
	Validator *extractor.Validator
	// Verifier confirms candidates over MX and SMTP. Required; a nil
	// Verifier disables guessing entirely.
	Verifier Verifier
	Logger   *slog.Logger
}

// Guesser builds and verifies generic address guesses.
type Guesser struct {
	cfg Config
}

// New creates a Guesser.
func New(cfg Config) *Guesser {
	if len(cfg.Locals) == 0 {
		cfg.Locals = DefaultLocals
	}
	if cfg.Validator == nil {
		cfg.Validator = extractor.NewValidator()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Guesser{cfg: cfg}
}

// Guess returns generic addresses at domain confirmed to exist. A domain
// without MX records yields nothing, and the first catch-all detection
// discards every guess for the domain: a server that accepts any recipient
// confirms none of them.
func (g *Guesser) Guess(ctx context.Context, domain string) []string {
	if g.cfg.Verifier == nil {
		return nil
	}

	var candidates []string
	for _, local := range g.cfg.Locals {
		addr := local + "@" + domain
		if g.cfg.Validator.IsValid(addr) {
			candidates = append(candidates, addr)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	if !g.cfg.Verifier.HasMX(ctx, domain) {
		g.cfg.Logger.Debug("no mx, skipping guesses", "domain", domain)
		return nil
	}

	var confirmed []string
	for _, addr := range candidates {
		out := g.cfg.Verifier.Probe(ctx, addr)
		if out.CatchAll {
			g.cfg.Logger.Debug("catch-all domain, discarding guesses", "domain", domain)
			return nil
		}
		if out.Exists {
			confirmed = append(confirmed, addr)
		}
	}
	return confirmed
}
