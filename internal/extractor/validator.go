package extractor

import (
	"strings"

	"github.com/badoux/checkmail"
)

// Sets below mirror what shows up in the wild on small-business sites:
// disposable inboxes, assets mis-parsed as addresses, and provider domains
// that never identify the company itself.

var disposableDomains = map[string]struct{}{
	"tempmail.com":      {},
	"guerrillamail.com": {},
	"mailinator.com":    {},
	"10minutemail.com":  {},
	"yopmail.com":       {},
	"throwawaymail.com": {},
}

var genericDomains = map[string]struct{}{
	// registrars / site builders
	"godaddy.com": {}, "wix.com": {}, "wordpress.com": {}, "squarespace.com": {},
	// consumer mail providers
	"gmail.com": {}, "yahoo.com": {}, "hotmail.com": {}, "outlook.com": {}, "aol.com": {},
	// fonts / CDN / hosting
	"latofonts.com": {}, "googlefonts.com": {}, "typekit.com": {}, "fontawesome.com": {},
	"cloudflare.com": {}, "amazonaws.com": {}, "azurewebsites.net": {},
	// placeholders
	"example.com": {}, "test.com": {}, "localhost": {},
}

var invalidPrefixes = []string{
	"noreply", "no-reply", "donotreply", "do-not-reply",
	"filler", "test", "admin", "postmaster", "webmaster",
}

var placeholderAddresses = map[string]struct{}{
	"support@example": {},
	"info@example":    {},
	"sales@example":   {},
}

var fileExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".bmp", ".ico",
	".pdf", ".doc", ".docx", ".zip", ".css", ".js", ".json", ".xml",
}

var suspiciousMarkers = []string{"example.", "test@", "dummy", "fake", "sample"}

// Validator applies the rejection rules that separate plausible human contact
// addresses from scraped noise. The zero value is not usable; call NewValidator.
type Validator struct {
	skipSyntaxCheck bool
}

// Option customizes a Validator.
type Option func(*Validator)

// WithoutSyntaxCheck disables the RFC-format pre-check, leaving only the
// heuristic rules. Used by tests that feed deliberately odd tokens.
func WithoutSyntaxCheck() Option {
	return func(v *Validator) { v.skipSyntaxCheck = true }
}

// NewValidator creates a Validator.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{}
	for _, o := range opts {
		o(v)
	}
	return v
}

// IsValid reports whether email survives every rejection rule. The input is
// lowercased and trimmed before checking.
func (v *Validator) IsValid(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))

	// Shape: needs an @ and a dot after the last @.
	at := strings.LastIndexByte(email, '@')
	if at < 0 || !strings.Contains(email[at+1:], ".") {
		return false
	}

	// Asset names picked up by the regex, e.g. logo.png@2x.
	for _, ext := range fileExtensions {
		if strings.Contains(email, ext) {
			return false
		}
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}
	local, domain := parts[0], parts[1]

	if !v.skipSyntaxCheck {
		if err := checkmail.ValidateFormat(email); err != nil {
			return false
		}
	}

	if _, ok := disposableDomains[domain]; ok {
		return false
	}
	if _, ok := genericDomains[domain]; ok {
		return false
	}

	for _, prefix := range invalidPrefixes {
		if strings.HasPrefix(local, prefix) {
			return false
		}
	}
	if _, ok := placeholderAddresses[local+"@"+strings.Split(domain, ".")[0]]; ok {
		return false
	}

	if len(local) < 2 || len(domain) < 4 {
		return false
	}

	for _, marker := range suspiciousMarkers {
		if strings.Contains(email, marker) {
			return false
		}
	}

	return true
}
