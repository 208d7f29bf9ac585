// Package extractor pulls candidate contact addresses out of crawled pages
// and filters them down to plausible human mailboxes.
package extractor

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/prospectops/mailscout/internal/storage"
)

var emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// Extract collects address-like tokens from a page body: targets of mailto
// links (query strings stripped) and regex matches over the raw text. All
// results are lowercased; the caller is expected to dedupe across pages.
func Extract(body []byte) []string {
	set := make(map[string]struct{})

	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
		doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok {
				return
			}
			if len(href) < 7 || !strings.EqualFold(href[:7], "mailto:") {
				return
			}
			addr := href[7:]
			if q := strings.IndexByte(addr, '?'); q >= 0 {
				addr = addr[:q]
			}
			addr = strings.ToLower(strings.TrimSpace(addr))
			if addr != "" {
				set[addr] = struct{}{}
			}
		})
	}

	for _, m := range emailRe.FindAll(body, -1) {
		set[strings.ToLower(string(m))] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for addr := range set {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// ExtractFromResults runs Extract over every successfully fetched page,
// skipping failed and challenge-blocked pages, and returns the validated,
// deduplicated union.
func ExtractFromResults(results []*storage.FetchResult, v *Validator) []string {
	set := make(map[string]struct{})
	for _, r := range results {
		if r == nil || r.Error != "" || r.Blocked || r.StatusCode >= 400 || r.StatusCode == 0 {
			continue
		}
		for _, addr := range Extract(r.Body) {
			if v.IsValid(addr) {
				set[addr] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(set))
	for addr := range set {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// TargetDomain normalizes a resolved domain for affinity matching: scheme and
// www. prefix stripped, lowercased.
func TargetDomain(domain string) string {
	d := strings.ToLower(domain)
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimRight(d, "/")
}

// FilterByAffinity prefers addresses whose domain part contains the target
// domain. If any such address exists only those are returned, otherwise the
// input is returned unchanged. Precision when possible, recall as fallback.
func FilterByAffinity(emails []string, domain string) []string {
	target := TargetDomain(domain)
	if target == "" {
		return emails
	}

	var matched []string
	for _, e := range emails {
		at := strings.LastIndexByte(e, '@')
		if at < 0 {
			continue
		}
		if strings.Contains(e[at+1:], target) {
			matched = append(matched, e)
		}
	}
	if len(matched) > 0 {
		return matched
	}
	return emails
}
