package similarity

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Score computes how closely a candidate domain matches a company name,
// returning a ratio in [0,1]. The company name is lowercased and stripped of
// everything outside [a-z0-9]; the domain is lowercased and truncated at its
// first dot, so "Acme Corp" vs "acmecorp.com" compares "acmecorp" against
// "acmecorp". The ratio is the Ratcliff/Obershelp longest-matching-blocks
// measure, computed per rune.
//
// Score is deterministic and has no failure modes. Two empty normalized
// strings score 0, not 1: a name that normalizes to nothing matches nothing.
func Score(name, domain string) float64 {
	a := normalizeName(name)
	b := normalizeDomain(domain)
	if a == "" || b == "" {
		return 0
	}
	m := difflib.NewMatcher(explode(a), explode(b))
	return m.Ratio()
}

func normalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(domain)
	if i := strings.IndexByte(domain, '.'); i >= 0 {
		domain = domain[:i]
	}
	return domain
}

// explode splits a string into single-rune elements for the sequence matcher,
// which operates on string slices.
func explode(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Slug reduces a company name to the bare alphanumeric form used when guessing
// domains directly, e.g. "Acme Corp." -> "acmecorp".
func Slug(name string) string {
	return normalizeName(name)
}
