// Package bypass recognizes bot-protection challenge responses. A challenge
// page carries no contact information, so the extractor must know a fetch was
// blocked rather than mine the challenge HTML for addresses.
package bypass

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/prospectops/mailscout/internal/storage"
)

// Detector inspects a fetch result for a specific protection vendor's
// challenge or block signature.
type Detector func(res *storage.FetchResult) (blocked bool, vendor string)

// DefaultDetectors returns the standard detector list.
func DefaultDetectors() []Detector {
	return []Detector{
		detectCloudflare,
		detectAkamai,
		detectDataDome,
	}
}

// Analyze runs the result through all detectors, updating it in place.
// Returns true if any detector triggered.
func Analyze(res *storage.FetchResult, detectors []Detector) bool {
	if res == nil {
		return false
	}
	for _, d := range detectors {
		if blocked, vendor := d(res); blocked {
			res.Blocked = true
			res.BlockedBy = vendor
			return true
		}
	}
	res.Blocked = false
	res.BlockedBy = ""
	return false
}

func header(headers map[string][]string, key string) string {
	if vals, ok := headers[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	lower := strings.ToLower(key)
	for k, vals := range headers {
		if strings.ToLower(k) == lower && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

func detectCloudflare(res *storage.FetchResult) (bool, string) {
	if res.StatusCode != http.StatusForbidden && res.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(strings.ToLower(header(res.Headers, "Server")), "cloudflare") {
		return true, "Cloudflare"
	}
	for _, sig := range [][]byte{
		[]byte("cf-browser-verification"),
		[]byte("cf-turnstile"),
		[]byte("Attention Required! | Cloudflare"),
	} {
		if bytes.Contains(res.Body, sig) {
			return true, "Cloudflare"
		}
	}
	return false, ""
}

func detectAkamai(res *storage.FetchResult) (bool, string) {
	if res.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(header(res.Headers, "Server")), "akamai") {
		return true, "Akamai"
	}
	// Akamai's generic block page carries a "Reference #" marker
	if bytes.Contains(res.Body, []byte("Reference #")) && bytes.Contains(res.Body, []byte("Access Denied")) {
		return true, "Akamai"
	}
	return false, ""
}

func detectDataDome(res *storage.FetchResult) (bool, string) {
	if res.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(header(res.Headers, "Server")), "datadome") {
		return true, "DataDome"
	}
	if header(res.Headers, "X-DataDome") != "" || header(res.Headers, "X-DataDome-Response") != "" {
		return true, "DataDome"
	}
	if bytes.Contains(res.Body, []byte("geo.captcha-delivery.com")) {
		return true, "DataDome"
	}
	return false, ""
}
